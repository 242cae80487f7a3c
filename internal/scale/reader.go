package scale

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"scale-station/internal/weighing"
)

// frameRe extracts the signed weight and unit token from an indicator
// frame, e.g. "  +0012340 kg" or "ST,GS, 12340kg".
var frameRe = regexp.MustCompile(`([-+]?\d+)\s*([a-zA-Z]*)`)

var ErrNoReading = errors.New("scale: no reading available")

// Reader polls a serial weight indicator in a background goroutine and
// keeps the latest rounded reading in memory. Display code and the
// weighing service read the snapshot; they never touch the port.
type Reader struct {
	port     string
	baudRate int
	log      *logrus.Logger

	mu      sync.Mutex
	weight  int
	unit    string
	readErr error
	stop    bool
	done    chan struct{}
}

func NewReader(port string, baudRate int, log *logrus.Logger) *Reader {
	return &Reader{
		port:     port,
		baudRate: baudRate,
		log:      log,
		readErr:  ErrNoReading,
		done:     make(chan struct{}),
	}
}

func (r *Reader) Simulated() bool { return false }

// CurrentWeight returns the latest snapshot. The weight is already
// rounded to the scale granularity.
func (r *Reader) CurrentWeight() (int, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.readErr != nil {
		return 0, r.unit, r.readErr
	}
	return r.weight, r.unit, nil
}

// Start opens the port and launches the polling loop. Open errors are
// reported through CurrentWeight rather than failing startup, so the
// station boots with the indicator unplugged.
func (r *Reader) Start() {
	go r.loop()
}

// Stop asks the loop to exit and waits for it, bounded so a wedged
// serial read cannot hang shutdown.
func (r *Reader) Stop() {
	r.mu.Lock()
	r.stop = true
	r.mu.Unlock()

	select {
	case <-r.done:
	case <-time.After(3 * time.Second):
		r.log.Warn("scale reader did not stop in time")
	}
}

func (r *Reader) stopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stop
}

func (r *Reader) loop() {
	defer close(r.done)

	mode := &serial.Mode{
		BaudRate: r.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	for !r.stopped() {
		port, err := serial.Open(r.port, mode)
		if err != nil {
			r.setError(errors.New("No Conect"))
			r.log.WithField("port", r.port).Warn("scale port open failed, retrying")
			if r.sleepStopped(5 * time.Second) {
				return
			}
			continue
		}
		_ = port.SetReadTimeout(2 * time.Second)
		r.readFrames(port)
		_ = port.Close()
	}
}

// readFrames consumes indicator output until the port fails or Stop is
// requested.
func (r *Reader) readFrames(port serial.Port) {
	buf := make([]byte, 128)
	var pending strings.Builder

	for !r.stopped() {
		n, err := port.Read(buf)
		if err != nil {
			r.setError(errors.New("Err COM"))
			return
		}
		if n == 0 {
			continue
		}
		pending.Write(buf[:n])

		frames := strings.Split(pending.String(), "\n")
		// The last element may be a partial frame; keep it for the
		// next read.
		pending.Reset()
		pending.WriteString(frames[len(frames)-1])

		for _, frame := range frames[:len(frames)-1] {
			r.parseFrame(frame)
		}
	}
}

func (r *Reader) parseFrame(frame string) {
	m := frameRe.FindStringSubmatch(strings.TrimSpace(frame))
	if m == nil {
		return
	}
	raw, err := strconv.Atoi(m[1])
	if err != nil {
		return
	}
	unit := m[2]
	if unit == "" {
		unit = "kg"
	}

	r.mu.Lock()
	r.weight = weighing.RoundToGranularity(raw)
	r.unit = unit
	r.readErr = nil
	r.mu.Unlock()
}

func (r *Reader) setError(err error) {
	r.mu.Lock()
	r.readErr = err
	r.mu.Unlock()
}

func (r *Reader) sleepStopped(d time.Duration) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if r.stopped() {
			return true
		}
		time.Sleep(200 * time.Millisecond)
	}
	return r.stopped()
}
