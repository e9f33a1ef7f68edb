package units

import (
	"encoding/binary"
	"fmt"
)

// RecordSize is the stride of one slot of the unit array.
const RecordSize = 0x150

// QueueSlots is the length of a unit's production queue.
const QueueSlots = 5

// MaxPlayers bounds PlayerIndex for a valid record.
const MaxPlayers = 12

// Field offsets inside one record.
const (
	offHealth          = 0x08
	offDestX           = 0x10
	offDestY           = 0x12
	offCurrentX        = 0x28
	offCurrentY        = 0x2A
	offPlayerIndex     = 0x4C
	offActionIndex     = 0x4D
	offActionState     = 0x4E
	offAttackCooldown  = 0x54
	offShield          = 0x60
	offUnitType        = 0x64
	offProductionQueue = 0x98
	offTimer           = 0xAC
	offCurrentUpgrade  = 0xC9
	offUpgradeLevel    = 0xCA
)

// UnitRecord is one decoded slot. Slot is the position in the array for the poll
// that produced it and carries no identity across polls.
type UnitRecord struct {
	Slot            int                  `json:"slot"`
	Health          int32                `json:"health"`
	Shield          int32                `json:"shield"`
	CurrentX        uint16               `json:"currentX"`
	CurrentY        uint16               `json:"currentY"`
	DestX           uint16               `json:"destX"`
	DestY           uint16               `json:"destY"`
	PlayerIndex     uint8                `json:"playerIndex"`
	UnitType        UnitType             `json:"unitType"`
	ActionIndex     uint8                `json:"actionIndex"`
	ActionState     uint8                `json:"actionState"`
	AttackCooldown  uint8                `json:"attackCooldown"`
	Timer           uint16               `json:"timer"`
	CurrentUpgrade  uint8                `json:"currentUpgrade"`
	UpgradeLevel    uint8                `json:"upgradeLevel"`
	ProductionQueue [QueueSlots]UnitType `json:"productionQueue"`
}

// IsValid reports whether the slot holds a unit: a real type owned by a player in [0,11].
func (r *UnitRecord) IsValid() bool {
	return r.UnitType != None && r.PlayerIndex < MaxPlayers
}

// FromRaw decodes a fresh record.
func FromRaw(raw []byte, slot int) (UnitRecord, error) {
	var r UnitRecord
	err := ParseInto(raw, slot, &r)
	return r, err
}

// ParseInto overwrites every field of r from raw.
func ParseInto(raw []byte, slot int, r *UnitRecord) error {
	if len(raw) < RecordSize {
		return fmt.Errorf("unit record needs %d bytes, got %d", RecordSize, len(raw))
	}

	le := binary.LittleEndian
	r.Slot = slot
	// health and shield are 8.8 fixed point
	r.Health = int32(le.Uint32(raw[offHealth:])) >> 8
	r.Shield = int32(le.Uint32(raw[offShield:])) >> 8
	r.DestX = le.Uint16(raw[offDestX:])
	r.DestY = le.Uint16(raw[offDestY:])
	r.CurrentX = le.Uint16(raw[offCurrentX:])
	r.CurrentY = le.Uint16(raw[offCurrentY:])
	r.PlayerIndex = raw[offPlayerIndex]
	r.ActionIndex = raw[offActionIndex]
	r.ActionState = raw[offActionState]
	r.AttackCooldown = raw[offAttackCooldown]
	r.UnitType = UnitType(le.Uint16(raw[offUnitType:]))
	for i := range r.ProductionQueue {
		r.ProductionQueue[i] = UnitType(le.Uint16(raw[offProductionQueue+2*i:]))
	}
	r.Timer = le.Uint16(raw[offTimer:])
	r.CurrentUpgrade = raw[offCurrentUpgrade]
	r.UpgradeLevel = raw[offUpgradeLevel]
	return nil
}

// Encode writes r into raw in memory layout. Bytes outside the known fields are left as they are.
func Encode(r *UnitRecord, raw []byte) error {
	if len(raw) < RecordSize {
		return fmt.Errorf("unit record needs %d bytes, got %d", RecordSize, len(raw))
	}

	le := binary.LittleEndian
	le.PutUint32(raw[offHealth:], uint32(r.Health<<8))
	le.PutUint32(raw[offShield:], uint32(r.Shield<<8))
	le.PutUint16(raw[offDestX:], r.DestX)
	le.PutUint16(raw[offDestY:], r.DestY)
	le.PutUint16(raw[offCurrentX:], r.CurrentX)
	le.PutUint16(raw[offCurrentY:], r.CurrentY)
	raw[offPlayerIndex] = r.PlayerIndex
	raw[offActionIndex] = r.ActionIndex
	raw[offActionState] = r.ActionState
	raw[offAttackCooldown] = r.AttackCooldown
	le.PutUint16(raw[offUnitType:], uint16(r.UnitType))
	for i, t := range r.ProductionQueue {
		le.PutUint16(raw[offProductionQueue+2*i:], uint16(t))
	}
	le.PutUint16(raw[offTimer:], r.Timer)
	raw[offCurrentUpgrade] = r.CurrentUpgrade
	raw[offUpgradeLevel] = r.UpgradeLevel
	return nil
}

// EmptyQueue is a production queue with every entry None.
func EmptyQueue() [QueueSlots]UnitType {
	return [QueueSlots]UnitType{None, None, None, None, None}
}
