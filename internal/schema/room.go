package schema

import (
	"strconv"

	"github.com/eventops/portal/internal/core"
)

// Room is the field schema for room/QR assignment records.
// Header row: name, building, capacity, qrCode.
var Room = core.Schema[core.Room]{
	Entity: "room",
	Fields: []core.FieldSpec{
		{Name: "name", Label: "Room name", Kind: core.FieldText, Required: true, MaxLen: 255},
		{Name: "building", Label: "Building", Kind: core.FieldText, Required: true, MaxLen: 255},
		{Name: "capacity", Label: "Capacity", Kind: core.FieldNumber, Required: true},
		{Name: "qrCode", Label: "QR code", Kind: core.FieldText, MaxLen: 255},
	},
	Bind: func(vals map[string]string) core.Room {
		// capacity already passed the number check
		capacity, _ := strconv.Atoi(vals["capacity"])
		return core.Room{
			Name:     vals["name"],
			Building: vals["building"],
			Capacity: capacity,
			QRCode:   vals["qrCode"],
		}
	},
}
