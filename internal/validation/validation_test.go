package validation

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timerdeck/internal/models"
)

type recordingReporter struct {
	messages []string
}

func (r *recordingReporter) ReportError(_ context.Context, message string) {
	r.messages = append(r.messages, message)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		form    TimerForm
		want    int
		wantMsg string
	}{
		{name: "ok", form: TimerForm{Title: "Tea", Minutes: 3, Seconds: 30}, want: 210},
		{name: "max day", form: TimerForm{Title: "Day", Hours: 24}, want: 86400},
		{name: "blank title", form: TimerForm{Title: "   ", Seconds: 5}, wantMsg: MsgTitleRequired},
		{name: "long title", form: TimerForm{Title: strings.Repeat("x", 51), Seconds: 5}, wantMsg: MsgTitleTooLong},
		{name: "fifty chars ok", form: TimerForm{Title: strings.Repeat("x", 50), Seconds: 5}, want: 5},
		{name: "negative", form: TimerForm{Title: "A", Hours: -1}, wantMsg: MsgNegative},
		{name: "negative beats range", form: TimerForm{Title: "A", Minutes: 60, Seconds: -1}, wantMsg: MsgNegative},
		{name: "hours past a day", form: TimerForm{Title: "A", Hours: 25}, wantMsg: MsgTooLong},
		{name: "huge hours do not wrap", form: TimerForm{Title: "Tea", Hours: 1<<60 + 1}, wantMsg: MsgTooLong},
		{name: "hours wrapping to zero", form: TimerForm{Title: "Tea", Hours: 1 << 62}, wantMsg: MsgTooLong},
		{name: "range beats hours", form: TimerForm{Title: "A", Hours: 30, Minutes: 75}, wantMsg: MsgOutOfRange},
		{name: "minutes range", form: TimerForm{Title: "A", Minutes: 60}, wantMsg: MsgOutOfRange},
		{name: "seconds range", form: TimerForm{Title: "A", Seconds: 75}, wantMsg: MsgOutOfRange},
		{name: "zero", form: TimerForm{Title: "A"}, wantMsg: MsgZeroDuration},
		{name: "over a day", form: TimerForm{Title: "A", Hours: 24, Seconds: 1}, wantMsg: MsgTooLong},
		{name: "title checked first", form: TimerForm{Title: "", Hours: -1}, wantMsg: MsgTitleRequired},
	}
	v := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Validate(tt.form)
			if tt.wantMsg == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestCheckReportsFailures(t *testing.T) {
	rep := &recordingReporter{}
	v := New(rep)

	_, err := v.Check(context.Background(), TimerForm{Title: "ok", Seconds: 1})
	require.NoError(t, err)
	assert.Empty(t, rep.messages)

	_, err = v.Check(context.Background(), TimerForm{Title: "ok"})
	require.Error(t, err)
	assert.Equal(t, []string{MsgZeroDuration}, rep.messages)
}

func TestFormFromTimer(t *testing.T) {
	f := FormFromTimer(models.Timer{Title: "T", Description: "d", Duration: 3723})
	assert.Equal(t, TimerForm{Title: "T", Description: "d", Hours: 1, Minutes: 2, Seconds: 3}, f)
	assert.Equal(t, 3723, f.TotalSeconds())
}

func TestFormPatchKeepsAbsentFields(t *testing.T) {
	title := "Coffee"
	zero := 0
	base := TimerForm{Title: "Tea", Description: "green", Minutes: 3, Seconds: 30}

	got := FormPatch{Title: &title, Seconds: &zero}.Apply(base)
	assert.Equal(t, TimerForm{Title: "Coffee", Description: "green", Minutes: 3}, got)
	assert.Equal(t, base, FormPatch{}.Apply(base))
}
