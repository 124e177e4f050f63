package enums

// MovementKind classifies a stock movement recorded in part_movements.
type MovementKind string

const (
	MovementKindIn     MovementKind = "IN"
	MovementKindOut    MovementKind = "OUT"
	MovementKindAdjust MovementKind = "ADJUST"
)

var movementKinds = set[MovementKind]{MovementKindIn, MovementKindOut, MovementKindAdjust}

func (k MovementKind) String() string { return string(k) }

func (k MovementKind) IsValid() bool { return movementKinds.has(k) }

func ParseMovementKind(value string) (MovementKind, error) {
	return movementKinds.parse(value, "movement kind", true)
}
