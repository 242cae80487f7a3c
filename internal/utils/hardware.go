package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"strings"
)

// GetStationID reads the physical MAC address of the machine and hashes
// it so every station reports a clean, stable ID like "SCALE-A1B2C3D4"
func GetStationID() string {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "UNKNOWN-STATION"
	}

	var macAddress string
	for _, i := range interfaces {
		// Find the first active physical network interface
		if i.Flags&net.FlagUp != 0 && len(i.HardwareAddr) > 0 {
			macAddress = i.HardwareAddr.String()
			break
		}
	}

	if macAddress == "" {
		return "UNKNOWN-STATION"
	}

	hash := sha256.Sum256([]byte(macAddress + "SCALE-STATION-SALT"))
	hashString := hex.EncodeToString(hash[:])

	// Return a clean 8-character hardware ID
	return "SCALE-" + strings.ToUpper(hashString[:8])
}
