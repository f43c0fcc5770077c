// Braking distance model
// Predicts how far the shaft keeps turning after an active brake is applied,
// from the current time at angle (an inverse velocity).
package core

import "errors"

var (
	ErrEmptyBrakingTable       = errors.New("braking table is empty")
	ErrBrakingTableNotMonotone = errors.New("braking table distance increases with time at angle")
)

// BrakingTable maps time at angle (index) to predicted coast distance in
// encoder counts. Distances never increase with the index: a slower shaft
// always stops in the same or a shorter distance.
type BrakingTable struct {
	distances []uint16
}

// NewBrakingTable validates and copies a calibration table
func NewBrakingTable(distances []uint16) (*BrakingTable, error) {
	if len(distances) == 0 {
		return nil, ErrEmptyBrakingTable
	}
	if i := firstIncrease(distances); i >= 0 {
		return nil, &TableError{Index: i, Err: ErrBrakingTableNotMonotone}
	}
	t := &BrakingTable{distances: make([]uint16, len(distances))}
	copy(t.distances, distances)
	return t, nil
}

// DefaultBrakingTable returns the table built from DefaultBrakingDistances
func DefaultBrakingTable() *BrakingTable {
	return &BrakingTable{distances: DefaultBrakingDistances[:]}
}

// PredictedDistance returns the coast distance for a time at angle.
// Times beyond the end of the table are slow enough to stop at once.
func (t *BrakingTable) PredictedDistance(timeAtAngle uint16) uint16 {
	if int(timeAtAngle) >= len(t.distances) {
		return 0
	}
	return t.distances[timeAtAngle]
}

// Len returns the number of calibrated entries
func (t *BrakingTable) Len() int {
	return len(t.distances)
}

// firstIncrease returns the index of the first entry larger than its
// predecessor, or -1
func firstIncrease(distances []uint16) int {
	for i := 1; i < len(distances); i++ {
		if distances[i] > distances[i-1] {
			return i
		}
	}
	return -1
}

// TableError reports where a calibration table failed validation
type TableError struct {
	Index int
	Err   error
}

func (e *TableError) Error() string {
	return e.Err.Error() + " at index " + itoa(e.Index)
}

func (e *TableError) Unwrap() error {
	return e.Err
}

// DefaultBrakingDistances was measured by driving the gearmotor to speed,
// braking, and recording the remaining travel at each time at angle while
// it slowed down. Ticks 0..2 are faster than the motor can turn and hold the
// first extrapolated value.
var DefaultBrakingDistances = [350]uint16{
	8900, 8900, 8900, 8900, 8100, 7300, 6500, 5800, 5082, 4740,
	4108, 3592, 3160, 2904, 2588, 2340, 2128, 1932, 1741, 1656,
	1497, 1392, 1257, 1205, 1136, 1092, 1012, 937, 901, 840,
	781, 764, 720, 689, 664, 637, 613, 585, 552, 540,
	533, 505, 481, 465, 456, 441, 440, 405, 392, 381,
	377, 373, 357, 353, 333, 313, 305, 301, 301, 293,
	289, 285, 284, 273, 268, 245, 245, 237, 229, 229,
	229, 221, 217, 217, 217, 213, 209, 209, 208, 201,
	201, 197, 193, 193, 181, 157, 157, 157, 149, 145,
	145, 145, 141, 141, 141, 141, 137, 137, 137, 137,
	136, 133, 133, 133, 133, 133, 129, 128, 125, 125,
	125, 125, 125, 121, 121, 121, 121, 117, 117, 116,
	113, 113, 113, 105, 81, 81, 77, 77, 77, 77,
	73, 73, 73, 73, 73, 73, 73, 69, 69, 69,
	69, 69, 69, 69, 69, 68, 65, 65, 65, 65,
	65, 65, 65, 65, 65, 65, 61, 61, 61, 61,
	61, 61, 61, 61, 61, 61, 61, 61, 61, 61,
	57, 57, 57, 57, 57, 57, 57, 57, 57, 57,
	57, 57, 57, 57, 57, 57, 57, 57, 57, 57,
	53, 53, 53, 53, 53, 53, 53, 53, 53, 53,
	53, 53, 53, 53, 53, 53, 53, 53, 53, 53,
	53, 53, 53, 49, 49, 49, 49, 49, 49, 49,
	49, 49, 49, 49, 49, 49, 49, 49, 49, 49,
	49, 49, 49, 49, 49, 49, 49, 49, 49, 49,
	49, 49, 45, 45, 45, 45, 45, 45, 45, 45,
	45, 45, 45, 45, 45, 45, 45, 45, 45, 45,
	45, 45, 45, 45, 45, 45, 45, 45, 45, 45,
	45, 45, 45, 45, 45, 45, 45, 45, 45, 45,
	41, 41, 41, 41, 41, 41, 41, 41, 41, 41,
	41, 41, 41, 41, 41, 41, 41, 41, 41, 41,
	41, 41, 41, 41, 41, 41, 41, 41, 41, 41,
	41, 41, 41, 41, 41, 41, 41, 41, 41, 41,
	41, 41, 37, 37, 37, 37, 37, 37, 37, 37,
	37, 37, 37, 37, 37, 37, 37, 37, 37, 37,
	37, 37, 37, 37, 37, 37, 37, 37, 37, 37,
}
