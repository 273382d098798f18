package printer

import (
	"strconv"
	"strings"
)

// applyGcode interprets the handful of M-codes the simulator models and
// ignores everything else. Lines are separated by newlines; ';' starts a comment.
func (s *State) applyGcode(script string) (applied int) {
	for _, line := range strings.Split(script, "\n") {
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(strings.ToUpper(line))
		if len(fields) == 0 {
			continue
		}

		code, params := fields[0], fields[1:]
		// Compact form such as M104S220.
		if i := strings.IndexByte(code[1:], 'S'); i >= 0 {
			params = append([]string{code[i+1:]}, params...)
			code = code[:i+1]
		}

		sval, hasS := sParam(params)
		switch code {
		case "M104", "M109":
			if hasS {
				s.NozzleTarget = sval
				applied++
			}
		case "M140", "M190":
			if hasS {
				s.BedTarget = sval
				applied++
			}
		case "M106":
			if hasS {
				s.FanSpeed = int(min(max(sval, 0), 255) / 255 * 100)
				applied++
			}
		case "M107":
			s.FanSpeed = 0
			applied++
		}
	}
	return applied
}

// sParam returns the value of the S parameter.
func sParam(params []string) (float64, bool) {
	for _, p := range params {
		if v, ok := strings.CutPrefix(p, "S"); ok {
			f, err := strconv.ParseFloat(v, 64)
			return f, err == nil
		}
	}
	return 0, false
}
