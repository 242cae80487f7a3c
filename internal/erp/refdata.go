package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// Reference-data records as the station consumes them. Each fetcher
// flattens Odoo's loosely typed search_read rows into plain structs.

type CustomerRef struct {
	ExternalID      int64
	Name            string
	DiscountPercent int
	ALM2TargetID    int64
	CompanyName     string
	Active          bool
}

type VehicleRef struct {
	ExternalID  int64
	Plates      string
	VehicleType string
	Tara        int
	Active      bool
}

type TrailerRef struct {
	ExternalID int64
	Name       string
	Category   string
	Tara       int
	Active     bool
}

type DriverRef struct {
	ExternalID    int64
	Name          string
	LicenseNumber string
	Active        bool
}

type MaterialRef struct {
	ExternalID       int64
	Name             string
	Unit             string
	Category         string
	DiscountEligible bool
	Active           bool
}

// ParseEnvironmentCode unpacks the packed discount reference the ERP
// keeps on scale customers: the first two digits are the discount
// percentage, the rest the external id of the ALM2 billing account.
// "20345" -> discount 20, ALM2 account 345. Codes shorter than three
// digits carry no usable split data.
func ParseEnvironmentCode(code string) (discount int, alm2ID int64) {
	if len(code) < 3 {
		return 0, 0
	}
	d, err := strconv.Atoi(code[:2])
	if err != nil {
		return 0, 0
	}
	a, err := strconv.ParseInt(code[2:], 10, 64)
	if err != nil {
		return 0, 0
	}
	return d, a
}

// GetCustomers pulls scale-enabled company partners.
func (c *Client) GetCustomers(ctx context.Context) ([]CustomerRef, error) {
	rows, err := c.searchRead(ctx, "res.partner",
		[]any{
			[]any{"is_company", "=", true},
			[]any{"x_studio_use_scale", "=", true},
		},
		[]string{"id", "name", "active", "x_studio_referencia_ambiente", "company_id"})
	if err != nil {
		return nil, err
	}

	refs := make([]CustomerRef, 0, len(rows))
	for _, row := range rows {
		discount, alm2 := ParseEnvironmentCode(asString(row["x_studio_referencia_ambiente"]))
		refs = append(refs, CustomerRef{
			ExternalID:      asInt64(row["id"]),
			Name:            asString(row["name"]),
			DiscountPercent: discount,
			ALM2TargetID:    alm2,
			CompanyName:     relationName(row["company_id"]),
			Active:          asBool(row["active"]),
		})
	}
	return refs, nil
}

// GetVehicles pulls the fleet.
func (c *Client) GetVehicles(ctx context.Context) ([]VehicleRef, error) {
	rows, err := c.searchRead(ctx, "fleet.vehicle",
		nil,
		[]string{"id", "model_id", "license_plate", "x_studio_tara", "active"})
	if err != nil {
		return nil, err
	}

	refs := make([]VehicleRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, VehicleRef{
			ExternalID:  asInt64(row["id"]),
			Plates:      asString(row["license_plate"]),
			VehicleType: relationName(row["model_id"]),
			Tara:        int(asInt64(row["x_studio_tara"])),
			Active:      asBool(row["active"]),
		})
	}
	return refs, nil
}

// GetTrailers pulls trailer equipment records.
func (c *Client) GetTrailers(ctx context.Context) ([]TrailerRef, error) {
	rows, err := c.searchRead(ctx, "maintenance.equipment",
		nil,
		[]string{"id", "name", "category_id", "x_studio_equipo_tara", "active"})
	if err != nil {
		return nil, err
	}

	refs := make([]TrailerRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, TrailerRef{
			ExternalID: asInt64(row["id"]),
			Name:       asString(row["name"]),
			Category:   relationName(row["category_id"]),
			Tara:       int(asInt64(row["x_studio_equipo_tara"])),
			Active:     asBool(row["active"]),
		})
	}
	return refs, nil
}

// GetDrivers pulls employees from the drivers department.
func (c *Client) GetDrivers(ctx context.Context) ([]DriverRef, error) {
	rows, err := c.searchRead(ctx, "hr.employee",
		nil,
		[]string{"id", "name", "identification_id", "active"})
	if err != nil {
		return nil, err
	}

	refs := make([]DriverRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, DriverRef{
			ExternalID:    asInt64(row["id"]),
			Name:          asString(row["name"]),
			LicenseNumber: asString(row["identification_id"]),
			Active:        asBool(row["active"]),
		})
	}
	return refs, nil
}

// GetMaterials pulls kg-denominated consumable products; x_studio_spd
// marks discount eligibility.
func (c *Client) GetMaterials(ctx context.Context) ([]MaterialRef, error) {
	rows, err := c.searchRead(ctx, "product.template",
		[]any{
			[]any{"uom_name", "=", "kg"},
			[]any{"type", "=", "consu"},
		},
		[]string{"id", "display_name", "active", "uom_name", "categ_id", "x_studio_spd"})
	if err != nil {
		return nil, err
	}

	refs := make([]MaterialRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, MaterialRef{
			ExternalID:       asInt64(row["id"]),
			Name:             asString(row["display_name"]),
			Unit:             asString(row["uom_name"]),
			Category:         relationName(row["categ_id"]),
			DiscountEligible: asBool(row["x_studio_spd"]),
			Active:           asBool(row["active"]),
		})
	}
	return refs, nil
}

// Odoo JSON is weakly shaped: ids come as numbers, false stands in for
// null, many2one fields arrive as [id, "name"] pairs.

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case json.Number:
		n, _ := t.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	default:
		return 0
	}
}

func asBool(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

func relationName(v any) string {
	pair, ok := v.([]any)
	if !ok || len(pair) < 2 {
		return ""
	}
	return fmt.Sprintf("%v", pair[1])
}
