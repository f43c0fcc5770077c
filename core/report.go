package core

import "io"

// ReportAngle writes an angle reply line: the reply character, an 'E' when
// decode errors were seen, then the angle in decimal
func ReportAngle(w io.Writer, reply byte, angle int32, numErrors uint16) error {
	var buf [16]byte
	line := append(buf[:0], reply)
	if numErrors > 0 {
		line = append(line, 'E')
	}
	line = appendInt(line, int64(angle))
	line = append(line, '\n')
	_, err := w.Write(line)
	return err
}

// QueryMotorPosition reports a motor's angle, clearing its error count
func QueryMotorPosition(w io.Writer, set *MotorSet, id MotorID, reply byte) error {
	angle, numErrors, err := set.GetCurrentAngle(id)
	if err != nil {
		return err
	}
	return ReportAngle(w, reply, angle, numErrors)
}
