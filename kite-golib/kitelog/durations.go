package kitelog

import (
	"bytes"
	"fmt"
	"text/tabwriter"
	"time"
)

type duration struct {
	name     string
	duration time.Duration
	count    int
}

// Durations accumulates named durations, merging repeated names
type Durations []duration

// Record records a duration
func (t *Durations) Record(name string, d time.Duration) {
	for i := range *t {
		if (*t)[i].name == name {
			(*t)[i].duration += d
			(*t)[i].count++
			return
		}
	}
	*t = append(*t, duration{name: name, duration: d, count: 1})
}

// Time runs f and records how long it took under name
func (t *Durations) Time(name string, f func() error) error {
	start := time.Now()
	err := f()
	t.Record(name, time.Since(start))
	return err
}

// Total returns the accumulated duration for name
func (t Durations) Total(name string) time.Duration {
	for _, entry := range t {
		if entry.name == name {
			return entry.duration
		}
	}
	return 0
}

// Flush writes a table of the tracked durations to the given handler and resets the tracker
func (t *Durations) Flush(i Interface) {
	var b bytes.Buffer
	tw := tabwriter.NewWriter(&b, 4, 4, 0, ' ', 0)
	for _, entry := range *t {
		fmt.Fprintf(tw, "   %s\t%s\t(%d calls)\n", entry.name, entry.duration, entry.count)
	}
	tw.Flush()

	i.Println(b.String())
	*t = nil
}
