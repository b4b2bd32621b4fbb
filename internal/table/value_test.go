package table

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	// Verify all types implement Value (compile-time check via assignment)
	var _ Value = Null{}
	var _ Value = String("Engineering")
	var _ Value = Number(42)
	var _ Value = Date(time.Time{})
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "iso day", input: "2023-01-15", want: "2023-01-15"},
		{name: "rfc3339", input: "2023-01-15T10:30:00Z", want: "2023-01-15"},
		{name: "late with negative offset", input: "2023-01-01T22:00:00-05:00", want: "2023-01-01"},
		{name: "early with positive offset", input: "2023-01-01T01:00:00+05:00", want: "2023-01-01"},
		{name: "space separated", input: "2023-01-15 10:30:00", want: "2023-01-15"},
		{name: "slashes", input: "2023/01/15", want: "2023-01-15"},
		{name: "us style", input: "01/15/2023", want: "2023-01-15"},
		{name: "month only", input: "2023-01", want: "2023-01-01"},
		{name: "padded", input: "  2023-01-15 ", want: "2023-01-15"},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "last tuesday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format(DateLayout))
		})
	}
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, Null{}, ParseValue("", TypeString))
	assert.Equal(t, Null{}, ParseValue("   ", TypeNumber))
	assert.Equal(t, String("Alice"), ParseValue("Alice", TypeString))
	assert.Equal(t, Number(12.5), ParseValue("12.5", TypeNumber))
	assert.Equal(t, Null{}, ParseValue("twelve", TypeNumber), "bad numbers become null")
	assert.Equal(t, Null{}, ParseValue("NaN", TypeNumber), "non-finite numbers become null")

	assert.Equal(t, "2023-01-01", ParseValue("2023-01-01T22:00:00-05:00", TypeDate).(Date).String(),
		"the day is taken in the value's own offset")
	assert.Equal(t, "2023-01-01", ParseValue("2023-01-01T01:00:00+05:00", TypeDate).(Date).String())

	d := ParseValue("2022-03-04", TypeDate)
	require.IsType(t, Date{}, d)
	assert.Equal(t, "2022-03-04", d.(Date).String())
}

func TestCompare(t *testing.T) {
	jan := NewDate(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	feb := NewDate(time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, -1, Compare(Number(2), Number(10)), "numbers compare numerically")
	assert.Equal(t, 1, Compare(String("b"), String("a")))
	assert.Equal(t, -1, Compare(String("B"), String("a")), "strings compare on raw bytes")
	assert.Equal(t, -1, Compare(jan, feb))
	assert.Equal(t, 0, Compare(feb, feb))
}

func TestRender(t *testing.T) {
	assert.Nil(t, Render(Null{}))
	assert.Equal(t, int64(40), Render(Number(40)))
	assert.Equal(t, 40.5, Render(Number(40.5)))
	assert.Equal(t, "Sales", Render(String("Sales")))
	assert.Equal(t, "2021-06-30", Render(NewDate(time.Date(2021, 6, 30, 15, 4, 5, 0, time.UTC))))
}

func TestText(t *testing.T) {
	assert.Equal(t, "", Text(Null{}))
	assert.Equal(t, "3.25", Text(Number(3.25)))
	assert.Equal(t, "7", Text(Number(7)))
}

func TestIsNull(t *testing.T) {
	assert.True(t, IsNull(nil))
	assert.True(t, IsNull(Null{}))
	assert.False(t, IsNull(String("")))
}
