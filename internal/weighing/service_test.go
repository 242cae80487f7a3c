package weighing

import (
	"errors"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"scale-station/internal/database"
	"scale-station/internal/logging"
	"scale-station/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	return db
}

// stubScale returns a fixed reading.
type stubScale struct {
	weight    int
	err       error
	simulated bool
}

func (s *stubScale) CurrentWeight() (int, string, error) { return s.weight, "kg", s.err }
func (s *stubScale) Simulated() bool                     { return s.simulated }

// countingEnqueuer records outbox calls without touching the ERP.
type countingEnqueuer struct {
	ids []uint
}

func (e *countingEnqueuer) Enqueue(tx *gorm.DB, weighingID uint) error {
	e.ids = append(e.ids, weighingID)
	return nil
}

// refs holds the seeded reference rows every lifecycle test needs.
type refs struct {
	customer     models.Customer // no discount
	discounted   models.Customer // 20% discount, ALM2 target synced
	alm2Customer models.Customer
	vehicle      models.Vehicle
	trailer      models.Trailer
	driver       models.Driver
	material     models.Material // discount eligible
	plain        models.Material // not eligible
}

func seedRefs(t *testing.T, db *gorm.DB) refs {
	t.Helper()
	r := refs{
		customer:     models.Customer{ExternalID: 101, Name: "Plain Co", Active: true},
		alm2Customer: models.Customer{ExternalID: 345, Name: "ALM2 Account", Active: true},
		discounted:   models.Customer{ExternalID: 102, Name: "Discount Co", DiscountPercent: 20, ALM2TargetID: 345, Active: true},
		vehicle:      models.Vehicle{ExternalID: 201, Plates: "ABC-123", VehicleType: "Torton", Tara: 9000, Active: true},
		trailer:      models.Trailer{ExternalID: 301, Name: "Caja 40", Category: "Caja seca", Tara: 6000, Active: true},
		driver:       models.Driver{ExternalID: 401, Name: "Juan Perez", Active: true},
		material:     models.Material{ExternalID: 501, Name: "Fierro", Unit: "kg", DiscountEligible: true, Active: true},
		plain:        models.Material{ExternalID: 502, Name: "Carton", Unit: "kg", Active: true},
	}
	for _, m := range []any{&r.customer, &r.alm2Customer, &r.discounted, &r.vehicle, &r.trailer, &r.driver, &r.material, &r.plain} {
		if err := db.Create(m).Error; err != nil {
			t.Fatalf("seed refs: %v", err)
		}
	}
	return r
}

func newTestService(t *testing.T, db *gorm.DB, sc *stubScale) (*Service, *countingEnqueuer) {
	t.Helper()
	enq := &countingEnqueuer{}
	svc := NewService(db, sc, enq, logging.New(), 19000)
	return svc, enq
}

func formFor(r refs, customerID, materialID uint) Form {
	return Form{
		VehicleID:  r.vehicle.ID,
		TrailerID:  r.trailer.ID,
		DriverID:   r.driver.ID,
		CustomerID: customerID,
		MaterialID: materialID,
	}
}

func TestRegisterEntry_NoDiscount(t *testing.T) {
	db := newTestDB(t)
	r := seedRefs(t, db)
	svc, enq := newTestService(t, db, &stubScale{weight: 38120})

	result, err := svc.RegisterEntry(formFor(r, r.customer.ID, r.material.ID), 1)
	if err != nil {
		t.Fatalf("RegisterEntry: %v", err)
	}

	rec := result.Record
	if rec.Folio != "000001" {
		t.Errorf("folio = %q, want 000001", rec.Folio)
	}
	if rec.Status != models.StatusPending {
		t.Errorf("status = %q, want Pending", rec.Status)
	}
	if rec.GrossWeight != 38120 || rec.WeightOriginal != 38120 {
		t.Errorf("gross = %d original = %d, want 38120 for both", rec.GrossWeight, rec.WeightOriginal)
	}
	if rec.NetWeight != 0 || rec.TareWeight != 0 {
		t.Errorf("tare/net should be 0 at entry, got %d/%d", rec.TareWeight, rec.NetWeight)
	}
	if rec.FolioALM2 != "" {
		t.Errorf("unexpected ALM2 twin %q for undiscounted customer", rec.FolioALM2)
	}
	if result.NextFolio != "000002" {
		t.Errorf("next folio = %q, want 000002", result.NextFolio)
	}
	if len(enq.ids) != 1 {
		t.Errorf("sync enqueues = %d, want 1", len(enq.ids))
	}
}

func TestRegisterEntry_DiscountSplitsTwin(t *testing.T) {
	db := newTestDB(t)
	r := seedRefs(t, db)
	svc, enq := newTestService(t, db, &stubScale{weight: 1000})

	result, err := svc.RegisterEntry(formFor(r, r.discounted.ID, r.material.ID), 1)
	if err != nil {
		t.Fatalf("RegisterEntry: %v", err)
	}

	rec := result.Record
	if rec.GrossWeight != 800 {
		t.Errorf("primary gross = %d, want 800", rec.GrossWeight)
	}
	if rec.WeightOriginal != 1000 {
		t.Errorf("weight original = %d, want 1000", rec.WeightOriginal)
	}
	if rec.FolioALM2 != "000001A" {
		t.Errorf("folio_alm2 = %q, want 000001A", rec.FolioALM2)
	}

	var twin models.WeighingRecord
	if err := db.Where("folio = ?", "000001A").First(&twin).Error; err != nil {
		t.Fatalf("twin not persisted: %v", err)
	}
	if twin.GrossWeight != 200 {
		t.Errorf("twin gross = %d, want 200", twin.GrossWeight)
	}
	if twin.CustomerID != r.alm2Customer.ID {
		t.Errorf("twin customer = %d, want ALM2 account %d", twin.CustomerID, r.alm2Customer.ID)
	}
	// The twin is written first, so it takes the lower id.
	if twin.ID >= rec.ID {
		t.Errorf("twin id %d should precede primary id %d", twin.ID, rec.ID)
	}
	if len(enq.ids) != 2 {
		t.Errorf("sync enqueues = %d, want 2 (twin and primary)", len(enq.ids))
	}
}

func TestRegisterEntry_NoTwinForIneligibleMaterial(t *testing.T) {
	db := newTestDB(t)
	r := seedRefs(t, db)
	svc, _ := newTestService(t, db, &stubScale{weight: 1000})

	result, err := svc.RegisterEntry(formFor(r, r.discounted.ID, r.plain.ID), 1)
	if err != nil {
		t.Fatalf("RegisterEntry: %v", err)
	}
	if result.Record.FolioALM2 != "" || result.Record.GrossWeight != 1000 {
		t.Errorf("ineligible material must not split: gross %d, twin %q",
			result.Record.GrossWeight, result.Record.FolioALM2)
	}
}

func TestRegisterEntry_UnsyncedALM2AccountRejected(t *testing.T) {
	db := newTestDB(t)
	r := seedRefs(t, db)
	// Point the discount at an account that was never synced locally.
	db.Model(&r.discounted).Update("alm2_target_id", 999)
	svc, _ := newTestService(t, db, &stubScale{weight: 1000})

	_, err := svc.RegisterEntry(formFor(r, r.discounted.ID, r.material.ID), 1)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestRegisterEntry_MissingReferenceRejected(t *testing.T) {
	db := newTestDB(t)
	r := seedRefs(t, db)
	svc, _ := newTestService(t, db, &stubScale{weight: 1000})

	form := formFor(r, r.customer.ID, r.material.ID)
	form.DriverID = 9999
	if _, err := svc.RegisterEntry(form, 1); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}

	form = formFor(r, r.customer.ID, r.material.ID)
	form.CustomerID = 0
	if _, err := svc.RegisterEntry(form, 1); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestRegisterEntry_ScaleFailure(t *testing.T) {
	db := newTestDB(t)
	r := seedRefs(t, db)

	svc, _ := newTestService(t, db, &stubScale{err: errors.New("Err COM")})
	if _, err := svc.RegisterEntry(formFor(r, r.customer.ID, r.material.ID), 1); !errors.Is(err, ErrDevice) {
		t.Fatalf("err = %v, want ErrDevice", err)
	}

	svc, _ = newTestService(t, db, &stubScale{weight: 0})
	if _, err := svc.RegisterEntry(formFor(r, r.customer.ID, r.material.ID), 1); !errors.Is(err, ErrDevice) {
		t.Fatalf("zero reading: err = %v, want ErrDevice", err)
	}
}

func TestRegisterExit_CapturesTare(t *testing.T) {
	db := newTestDB(t)
	r := seedRefs(t, db)
	svc, _ := newTestService(t, db, &stubScale{weight: 14980})

	result, err := svc.RegisterExit(formFor(r, r.customer.ID, r.material.ID), 1)
	if err != nil {
		t.Fatalf("RegisterExit: %v", err)
	}
	rec := result.Record
	if rec.WeighingType != models.WeighingTypeExit {
		t.Errorf("type = %q, want Exit", rec.WeighingType)
	}
	if rec.TareWeight != 14980 || rec.GrossWeight != 0 || rec.NetWeight != 0 {
		t.Errorf("exit weights gross/tare/net = %d/%d/%d, want 0/14980/0",
			rec.GrossWeight, rec.TareWeight, rec.NetWeight)
	}
}

func TestRegisterExit_SimulatorTareOffset(t *testing.T) {
	db := newTestDB(t)
	r := seedRefs(t, db)
	svc, _ := newTestService(t, db, &stubScale{weight: 33980, simulated: true})

	result, err := svc.RegisterExit(formFor(r, r.customer.ID, r.material.ID), 1)
	if err != nil {
		t.Fatalf("RegisterExit: %v", err)
	}
	if result.Record.TareWeight != 33980-19000 {
		t.Errorf("simulated tare = %d, want %d", result.Record.TareWeight, 33980-19000)
	}
}

func TestClose_EntryCapturesTareAndNet(t *testing.T) {
	db := newTestDB(t)
	r := seedRefs(t, db)
	sc := &stubScale{weight: 38120}
	svc, _ := newTestService(t, db, sc)

	result, err := svc.RegisterEntry(formFor(r, r.customer.ID, r.material.ID), 1)
	if err != nil {
		t.Fatal(err)
	}

	sc.weight = 15120
	detail, err := svc.Close(result.Record.ID, 2)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if detail.Status != models.StatusClosed {
		t.Errorf("status = %q, want Closed", detail.Status)
	}
	if detail.TareWeight != 15120 || detail.NetWeight != 38120-15120 {
		t.Errorf("tare/net = %d/%d, want 15120/%d", detail.TareWeight, detail.NetWeight, 38120-15120)
	}
	if detail.DateEnd == nil {
		t.Error("date_end not set on close")
	}
}

func TestClose_ExitCapturesGross(t *testing.T) {
	db := newTestDB(t)
	r := seedRefs(t, db)
	sc := &stubScale{weight: 14980}
	svc, _ := newTestService(t, db, sc)

	result, err := svc.RegisterExit(formFor(r, r.customer.ID, r.material.ID), 1)
	if err != nil {
		t.Fatal(err)
	}

	sc.weight = 39985
	detail, err := svc.Close(result.Record.ID, 1)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if detail.GrossWeight != 39985 || detail.NetWeight != 39985-14980 {
		t.Errorf("gross/net = %d/%d, want 39985/%d", detail.GrossWeight, detail.NetWeight, 39985-14980)
	}
}

func TestClose_AlreadyClosedRejected(t *testing.T) {
	db := newTestDB(t)
	r := seedRefs(t, db)
	sc := &stubScale{weight: 38120}
	svc, _ := newTestService(t, db, sc)

	result, err := svc.RegisterEntry(formFor(r, r.customer.ID, r.material.ID), 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Close(result.Record.ID, 1); err != nil {
		t.Fatal(err)
	}

	_, err = svc.Close(result.Record.ID, 1)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("second close: err = %v, want ErrValidation", err)
	}
}

func TestClose_SplitPairRecomputesBothHalves(t *testing.T) {
	db := newTestDB(t)
	r := seedRefs(t, db)
	sc := &stubScale{weight: 1000}
	svc, _ := newTestService(t, db, sc)

	result, err := svc.RegisterEntry(formFor(r, r.discounted.ID, r.material.ID), 1)
	if err != nil {
		t.Fatal(err)
	}

	// SplitClose(1000, 400, 20): net 600, reduced 480, alm2 120.
	sc.weight = 400
	detail, err := svc.Close(result.Record.ID, 1)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if detail.GrossWeight != 880 || detail.TareWeight != 400 || detail.NetWeight != 480 {
		t.Errorf("primary gross/tare/net = %d/%d/%d, want 880/400/480",
			detail.GrossWeight, detail.TareWeight, detail.NetWeight)
	}

	var twin models.WeighingRecord
	if err := db.Where("folio = ?", "000001A").First(&twin).Error; err != nil {
		t.Fatal(err)
	}
	if twin.Status != models.StatusClosed {
		t.Errorf("twin status = %q, want Closed", twin.Status)
	}
	if twin.GrossWeight != 520 || twin.TareWeight != 400 || twin.NetWeight != 120 {
		t.Errorf("twin gross/tare/net = %d/%d/%d, want 520/400/120",
			twin.GrossWeight, twin.TareWeight, twin.NetWeight)
	}
	if detail.NetWeight+twin.NetWeight != 600 {
		t.Errorf("nets %d + %d should reconstruct the original 600", detail.NetWeight, twin.NetWeight)
	}
}

func TestCloseWithKnownTara(t *testing.T) {
	db := newTestDB(t)
	r := seedRefs(t, db)
	sc := &stubScale{weight: 38120}
	svc, _ := newTestService(t, db, sc)

	result, err := svc.RegisterEntry(formFor(r, r.customer.ID, r.material.ID), 1)
	if err != nil {
		t.Fatal(err)
	}

	// No truck on the platform; static taras 9000 + 6000.
	sc.err = errors.New("No Conect")
	detail, err := svc.CloseWithKnownTara(result.Record.ID, 3)
	if err != nil {
		t.Fatalf("CloseWithKnownTara: %v", err)
	}
	if detail.TareWeight != 15000 || detail.NetWeight != 38120-15000 {
		t.Errorf("tare/net = %d/%d, want 15000/%d", detail.TareWeight, detail.NetWeight, 38120-15000)
	}

	var history models.FolioHistory
	if err := db.Where("weighing_id = ?", result.Record.ID).First(&history).Error; err != nil {
		t.Fatalf("automatic close must leave a history row: %v", err)
	}
	if history.Note != "Closed automatically" {
		t.Errorf("history note = %q", history.Note)
	}
}

func TestCloseWithKnownTara_UnknownTaraRejected(t *testing.T) {
	db := newTestDB(t)
	r := seedRefs(t, db)
	sc := &stubScale{weight: 38120}
	svc, _ := newTestService(t, db, sc)

	result, err := svc.RegisterEntry(formFor(r, r.customer.ID, r.material.ID), 1)
	if err != nil {
		t.Fatal(err)
	}

	db.Model(&r.vehicle).Update("tara", 0)
	if _, err := svc.CloseWithKnownTara(result.Record.ID, 1); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestClose_NotFound(t *testing.T) {
	db := newTestDB(t)
	seedRefs(t, db)
	svc, _ := newTestService(t, db, &stubScale{weight: 100})

	if _, err := svc.Close(12345, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRegisterManual_CreatesClosedFolio(t *testing.T) {
	db := newTestDB(t)
	r := seedRefs(t, db)
	svc, enq := newTestService(t, db, &stubScale{err: errors.New("No Conect")})

	form := ManualForm{
		Form:        formFor(r, r.discounted.ID, r.material.ID),
		GrossWeight: 42000,
		TareWeight:  17000,
	}
	result, err := svc.RegisterManual(form, 1)
	if err != nil {
		t.Fatalf("RegisterManual: %v", err)
	}
	rec := result.Record
	if rec.Status != models.StatusClosed || rec.DateEnd == nil {
		t.Errorf("manual folio must be created closed, got status %q", rec.Status)
	}
	if rec.NetWeight != 25000 {
		t.Errorf("net = %d, want 25000", rec.NetWeight)
	}
	// Manual folios never split, even for discount customers.
	if rec.FolioALM2 != "" {
		t.Errorf("manual folio must not have a twin, got %q", rec.FolioALM2)
	}
	if len(enq.ids) != 1 {
		t.Errorf("sync enqueues = %d, want 1", len(enq.ids))
	}
}

func TestRegisterManual_InvalidWeights(t *testing.T) {
	db := newTestDB(t)
	r := seedRefs(t, db)
	svc, _ := newTestService(t, db, &stubScale{weight: 100})

	form := ManualForm{Form: formFor(r, r.customer.ID, r.material.ID), GrossWeight: 0}
	if _, err := svc.RegisterManual(form, 1); !errors.Is(err, ErrValidation) {
		t.Fatalf("zero gross: err = %v, want ErrValidation", err)
	}

	form = ManualForm{Form: formFor(r, r.customer.ID, r.material.ID), GrossWeight: 100, TareWeight: -5}
	if _, err := svc.RegisterManual(form, 1); !errors.Is(err, ErrValidation) {
		t.Fatalf("negative tare: err = %v, want ErrValidation", err)
	}
}

func TestEditClosedWeights(t *testing.T) {
	db := newTestDB(t)
	r := seedRefs(t, db)
	sc := &stubScale{weight: 38120}
	svc, _ := newTestService(t, db, sc)

	result, err := svc.RegisterEntry(formFor(r, r.customer.ID, r.material.ID), 1)
	if err != nil {
		t.Fatal(err)
	}

	// Still open: edits go through close, not the correction path.
	_, err = svc.EditClosedWeights(result.Record.ID, WeightEdit{GrossWeight: 40000, TareWeight: 15000}, 1)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("open record edit: err = %v, want ErrValidation", err)
	}

	sc.weight = 15120
	if _, err := svc.Close(result.Record.ID, 1); err != nil {
		t.Fatal(err)
	}

	detail, err := svc.EditClosedWeights(result.Record.ID, WeightEdit{GrossWeight: 40000, TareWeight: 15000, Note: "typo"}, 2)
	if err != nil {
		t.Fatalf("EditClosedWeights: %v", err)
	}
	if detail.GrossWeight != 40000 || detail.TareWeight != 15000 || detail.NetWeight != 25000 {
		t.Errorf("edited gross/tare/net = %d/%d/%d, want 40000/15000/25000",
			detail.GrossWeight, detail.TareWeight, detail.NetWeight)
	}

	var history []models.FolioHistory
	if err := db.Where("weighing_id = ? AND note = ?", result.Record.ID, "typo").Find(&history).Error; err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Fatalf("history rows = %d, want 1", len(history))
	}
	if history[0].PreviousValue != "gross=38120 tare=15120 net=23000" {
		t.Errorf("previous value = %q", history[0].PreviousValue)
	}
}
