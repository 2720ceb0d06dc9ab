package runtime

import (
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"
)

var startTime time.Time

func init() {
	startTime = time.Now()
}

func createOSLib() *Table {
	lib := NewTable(0, 3)
	fns := map[string]stdFunc{
		"clock": stdOSClock,
		"date":  stdOSDate,
		"time":  stdOSTime,
	}
	for name, fn := range fns {
		_ = lib.Put(String(name), newGoClosure("os."+name, Fn(fn), 0))
	}
	return lib
}

func stdOSClock(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "os.clock"); err != nil {
		return nil, err
	}
	return []Value{Float(time.Since(startTime).Seconds())}, nil
}

func stdOSTime(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "os.time", "~table"); err != nil {
		return nil, err
	}
	if len(args) == 0 || args[0] == nil {
		return []Value{Integer(time.Now().Unix())}, nil
	}
	timeTable := args[0].(*Table)
	for _, field := range []string{"year", "month", "day"} {
		if timeTable.Get(String(field)) == nil {
			return nil, argumentErr(1, "os.time", fmt.Errorf("field '%v' missing in the time table", field))
		}
	}
	year := toIntWithDefault(timeTable.Get(String("year")), 0)
	month := toIntWithDefault(timeTable.Get(String("month")), 0)
	day := toIntWithDefault(timeTable.Get(String("day")), 0)
	hour := toIntWithDefault(timeTable.Get(String("hour")), 12)
	minute := toIntWithDefault(timeTable.Get(String("min")), 0)
	sec := toIntWithDefault(timeTable.Get(String("sec")), 0)
	t := time.Date(int(year), time.Month(month), int(day), int(hour), int(minute), int(sec), 0, time.Local)
	return []Value{Integer(t.Unix())}, nil
}

func stdOSDate(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "os.date", "~string", "~number"); err != nil {
		return nil, err
	}
	format := "%c"
	if len(args) > 0 && args[0] != nil {
		format = string(args[0].(String))
	}
	fmtTime := time.Now()
	if len(args) > 1 && args[1] != nil {
		fmtTime = time.Unix(toIntWithDefault(args[1], 0), 0)
	}
	if strings.HasPrefix(format, "!") {
		fmtTime = fmtTime.UTC()
	}
	format = strings.TrimPrefix(format, "!")
	if strings.TrimSpace(format) == "*t" {
		tbl := NewTable(0, 9)
		fields := map[string]Value{
			"year":  Integer(fmtTime.Year()),
			"month": Integer(fmtTime.Month()),
			"day":   Integer(fmtTime.Day()),
			"hour":  Integer(fmtTime.Hour()),
			"min":   Integer(fmtTime.Minute()),
			"sec":   Integer(fmtTime.Second()),
			"wday":  Integer(fmtTime.Weekday() + 1),
			"yday":  Integer(fmtTime.YearDay()),
			"isdst": Boolean(fmtTime.IsDST()),
		}
		for key, val := range fields {
			if err := tbl.Put(String(key), val); err != nil {
				return nil, err
			}
		}
		return []Value{tbl}, nil
	}
	strf, err := strftime.New(format)
	if err != nil {
		return nil, argumentErr(1, "os.date", fmt.Errorf("invalid time format '%v'", format))
	}
	return []Value{String(strf.FormatString(fmtTime))}, nil
}

func toIntWithDefault(val Value, def int64) int64 {
	if i, ok := toInteger(val); ok {
		return i
	}
	return def
}
