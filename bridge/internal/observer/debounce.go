package observer

import (
	"time"

	"github.com/hazyhaar/treebridge/dom"
)

// debounceConfig controls the batching behaviour.
type debounceConfig struct {
	// Window is the debounce time. Default: 250ms.
	Window time.Duration
	// MaxBuffer flushes immediately when this many records accumulate. Default: 1000.
	MaxBuffer int
	// Compress coalesces runs of attribute and character-data records.
	Compress bool
}

func (dc *debounceConfig) defaults() {
	if dc.Window <= 0 {
		dc.Window = 250 * time.Millisecond
	}
	if dc.MaxBuffer <= 0 {
		dc.MaxBuffer = 1000
	}
}

// debouncer collects raw records and emits them as one batch when the
// window expires or the buffer fills. A batch is the unit the sanitizer
// processes to completion.
type debouncer struct {
	cfg     debounceConfig
	records []dom.ChangeRecord
	timer   *time.Timer
	timerCh <-chan time.Time
	flushFn func([]dom.ChangeRecord)
}

func newDebouncer(cfg debounceConfig, flushFn func([]dom.ChangeRecord)) *debouncer {
	cfg.defaults()
	return &debouncer{
		cfg:     cfg,
		records: make([]dom.ChangeRecord, 0, cfg.MaxBuffer),
		flushFn: flushFn,
	}
}

// add pushes a record into the buffer. Returns true if an immediate flush
// was triggered (buffer full).
func (d *debouncer) add(rec dom.ChangeRecord) bool {
	d.records = append(d.records, rec)

	if len(d.records) >= d.cfg.MaxBuffer {
		d.flush()
		return true
	}

	// (Re)start the window timer.
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.NewTimer(d.cfg.Window)
	d.timerCh = d.timer.C
	return false
}

// timerC returns the channel that fires when the debounce window expires.
// It is nil while the buffer is empty.
func (d *debouncer) timerC() <-chan time.Time {
	return d.timerCh
}

func (d *debouncer) pending() int { return len(d.records) }

// flush emits the buffered records, then resets.
func (d *debouncer) flush() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
		d.timerCh = nil
	}
	if len(d.records) == 0 {
		return
	}

	records := d.records
	if d.cfg.Compress {
		records = compress(records)
	}
	// The flush callback may keep the slice; start a fresh buffer.
	d.records = make([]dom.ChangeRecord, 0, d.cfg.MaxBuffer)
	d.flushFn(records)
}

// compress applies the coalescing rules:
//   - N consecutive attribute records on the same (target, name) keep the
//     last, with the old value of the first
//   - N consecutive character-data records on the same target keep the last,
//     with the old value of the first
//   - child-list records are never compressed (structurally significant)
func compress(records []dom.ChangeRecord) []dom.ChangeRecord {
	if len(records) <= 1 {
		return records
	}

	result := make([]dom.ChangeRecord, 0, len(records))

	for i := 0; i < len(records); i++ {
		rec := records[i]

		switch rec.Kind {
		case dom.Attributes:
			firstOld := rec.OldValue
			j := i + 1
			for j < len(records) &&
				records[j].Kind == dom.Attributes &&
				records[j].Target == rec.Target &&
				records[j].AttributeName == rec.AttributeName {
				rec = records[j]
				j++
			}
			rec.OldValue = firstOld
			result = append(result, rec)
			i = j - 1

		case dom.CharacterData:
			firstOld := rec.OldValue
			j := i + 1
			for j < len(records) &&
				records[j].Kind == dom.CharacterData &&
				records[j].Target == rec.Target {
				rec = records[j]
				j++
			}
			rec.OldValue = firstOld
			result = append(result, rec)
			i = j - 1

		default:
			result = append(result, rec)
		}
	}

	return result
}
