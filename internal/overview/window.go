package overview

import (
	"strconv"
	"time"
)

// defaultWindow is used when the range token cannot be parsed.
const defaultWindow = 30 * 24 * time.Hour

// Window is the inclusive [From, To] reporting range.
type Window struct {
	Token string    `json:"token"`
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`
}

// ParseWindow interprets a relative range token of the form <integer><unit>,
// unit one of d/w/m/y, counted back from now. Anything unparseable falls back
// to 30 days.
func ParseWindow(token string, now time.Time) Window {
	w := Window{Token: token, To: now}
	n, unit, ok := splitToken(token)
	if !ok {
		w.Token = "30d"
		w.From = now.Add(-defaultWindow)
		return w
	}
	switch unit {
	case 'd':
		w.From = now.AddDate(0, 0, -n)
	case 'w':
		w.From = now.AddDate(0, 0, -7*n)
	case 'm':
		w.From = now.AddDate(0, -n, 0)
	case 'y':
		w.From = now.AddDate(-n, 0, 0)
	}
	return w
}

func splitToken(token string) (int, byte, bool) {
	if len(token) < 2 {
		return 0, 0, false
	}
	unit := token[len(token)-1]
	switch unit {
	case 'd', 'w', 'm', 'y':
	default:
		return 0, 0, false
	}
	n, err := strconv.Atoi(token[:len(token)-1])
	if err != nil || n <= 0 {
		return 0, 0, false
	}
	return n, unit, true
}
