package security

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeeSchedule(t *testing.T) {
	fs := DefaultFeeSchedule()

	tests := []struct {
		name   string
		amount float64
		want   float64
	}{
		{"percentage applies", 40.00, 0.40},
		{"floor applies", 0.50, 0.01},
		{"exactly at floor", 1.00, 0.01},
		{"large amount", 10000, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, fs.Fee(tt.amount), 1e-9)
		})
	}
}

func TestValidPhoneNumber(t *testing.T) {
	tests := []struct {
		phone string
		want  bool
	}{
		{"+10000000001", true},
		{"+254746500025", true},
		{"+1 (555) 000-0001", true},
		{"12345678901", true},
		{"", false},
		{"123", false},
		{"abcdefghijk", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidPhoneNumber(tt.phone), tt.phone)
	}
}

func TestValidPassword(t *testing.T) {
	assert.True(t, ValidPassword("longenough", 8))
	assert.False(t, ValidPassword("short", 8))
	// zero min length falls back to the default
	assert.False(t, ValidPassword("seven77", 0))
	assert.True(t, ValidPassword("eight888", 0))
}

func TestSanitizePhone(t *testing.T) {
	assert.Equal(t, "+15550000001", SanitizePhone("+1 (555) 000-0001"))
	assert.Equal(t, "12345", SanitizePhone("1-2-3-4-5"))
}

func TestTransactionID_Format(t *testing.T) {
	id := TransactionID()
	require.True(t, strings.HasPrefix(id, "TX_"))
	parts := strings.SplitN(id, "_", 3)
	require.Len(t, parts, 3)
	assert.Len(t, parts[2], 9)
	assert.NotEqual(t, id, TransactionID())
}

func TestPasswordHashers(t *testing.T) {
	for _, scheme := range []string{"legacy", "bcrypt"} {
		t.Run(scheme, func(t *testing.T) {
			h := HasherForScheme(scheme)
			stored, err := h.Hash("correct horse")
			require.NoError(t, err)
			assert.True(t, h.Verify("correct horse", stored))
			assert.False(t, h.Verify("wrong", stored))
			assert.False(t, h.Verify("", stored))
			assert.False(t, h.Verify("correct horse", ""))
		})
	}
}

func TestHasherForScheme_UnknownFallsBackToLegacy(t *testing.T) {
	h := HasherForScheme("whatever")
	stored, err := h.Hash("pw123456")
	require.NoError(t, err)
	assert.Equal(t, HashPassword("pw123456"), stored)
}

func TestSessionTracker(t *testing.T) {
	tr := NewSessionTracker(30 * time.Minute)
	base := time.Now()
	tr.now = func() time.Time { return base }

	tr.Start("tok-1", "+10000000001")

	phone, ok := tr.Lookup("tok-1")
	require.True(t, ok)
	assert.Equal(t, "+10000000001", phone)

	_, ok = tr.Lookup("unknown")
	assert.False(t, ok)

	// expires after the timeout
	tr.now = func() time.Time { return base.Add(31 * time.Minute) }
	_, ok = tr.Lookup("tok-1")
	assert.False(t, ok)

	tr.Start("tok-2", "+10000000002")
	tr.End("tok-2")
	_, ok = tr.Lookup("tok-2")
	assert.False(t, ok)
}
