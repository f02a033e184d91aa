package contention_test

import (
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/contention-lab/contention"
	"github.com/AntonStoeckl/contention-lab/testutil/helper"
)

func Test_EventLog_KeepsEveryConcurrentAppend(t *testing.T) {
	// setup
	const writers = 20
	const linesPerWriter = 50
	eventLog := helper.GivenEventLog(t)

	var wg sync.WaitGroup
	wg.Add(writers)

	// act
	for w := range writers {
		go func() {
			defer wg.Done()
			for i := range linesPerWriter {
				eventLog.Appendf("writer %d line %d", w, i)
			}
		}()
	}
	wg.Wait()

	// assert
	lines := eventLog.Snapshot()
	assert.Len(t, lines, writers*linesPerWriter)
	assert.Contains(t, lines, fmt.Sprintf("writer %d line %d", writers-1, linesPerWriter-1))
}

func Test_EventLog_SnapshotIsACopy(t *testing.T) {
	// setup
	eventLog := helper.GivenEventLog(t)
	eventLog.Append("first")

	// act
	snapshot := eventLog.Snapshot()
	snapshot[0] = "changed"

	// assert
	assert.Equal(t, []string{"first"}, eventLog.Snapshot())
}

func Test_EventLog_Clear_EmptiesTheLog(t *testing.T) {
	// setup
	eventLog := helper.GivenEventLog(t)
	eventLog.Append("first")
	eventLog.Append("second")

	// act
	eventLog.Clear()

	// assert
	assert.Equal(t, 0, eventLog.Len())
	assert.Empty(t, eventLog.Snapshot())
}

func Test_EventLog_WithMirror_ForwardsLinesToLogger(t *testing.T) {
	// setup
	logHandler := helper.NewLogHandlerSpy(false)
	eventLog := helper.GivenEventLog(t, contention.WithMirror(slog.New(logHandler)))

	// act
	eventLog.Append("[Race] participant 1 - started")

	// assert
	assert.True(t, logHandler.HasInfoLogWithMessage("event log").
		WithStringAttr("line", "[Race] participant 1 - started").
		Assert())
}

func Test_EventLog_WithMirror_KeepsLogOrderUnderConcurrentAppends(t *testing.T) {
	// setup
	logHandler := helper.NewLogHandlerSpy(false)
	eventLog := helper.GivenEventLog(t, contention.WithMirror(slog.New(logHandler)))

	var wg sync.WaitGroup
	for writer := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				eventLog.Appendf("writer %d line %d", writer, i)
			}
		}()
	}

	// act
	wg.Wait()

	// assert
	mirrored := make([]string, 0, 400)
	for _, record := range logHandler.GetRecords() {
		record.Attrs(func(attr slog.Attr) bool {
			if attr.Key == "line" {
				mirrored = append(mirrored, attr.Value.String())
			}
			return true
		})
	}

	assert.Equal(t, eventLog.Snapshot(), mirrored)
}
