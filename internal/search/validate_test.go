package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateNormalizesTerm(t *testing.T) {
	t.Parallel()

	req, err := Validate("  wireless mouse  ", "2000", "")
	require.NoError(t, err)
	require.Equal(t, "wireless mouse", req.Term)
	require.True(t, req.HasCeiling)
	require.Equal(t, 2000.00, req.PriceCeiling)
	require.Empty(t, req.Category)
}

func TestValidateStripsUnsafeCharacters(t *testing.T) {
	t.Parallel()

	req, err := Validate(`gaming <script>"mouse"</script> usb-c`, "", "")
	require.NoError(t, err)
	require.Equal(t, "gaming scriptmousescript usb-c", req.Term)
}

func TestValidateRejectsEmptyTerm(t *testing.T) {
	t.Parallel()

	for _, term := range []string{"", "   ", "!!!$$$"} {
		_, err := Validate(term, "", "")
		require.Error(t, err)
		require.True(t, IsValidationError(err))
	}
}

func TestValidateRejectsOverlongTerm(t *testing.T) {
	t.Parallel()

	long := make([]byte, MaxTermLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err := Validate(string(long), "", "")
	require.Error(t, err)
	require.True(t, IsValidationError(err))
}

func TestValidatePriceCeiling(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		raw     string
		want    float64
		wantErr bool
	}{
		{name: "rounded", raw: "1299.999", want: 1300.00},
		{name: "zero allowed", raw: "0", want: 0},
		{name: "negative", raw: "-5", wantErr: true},
		{name: "not a number", raw: "abc", wantErr: true},
		{name: "infinite", raw: "+Inf", wantErr: true},
		{name: "too large", raw: "1000001", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req, err := Validate("mouse", tc.raw, "")
			if tc.wantErr {
				require.Error(t, err)
				require.True(t, IsValidationError(err))
				return
			}
			require.NoError(t, err)
			require.True(t, req.HasCeiling)
			require.Equal(t, tc.want, req.PriceCeiling)
		})
	}
}

func TestValidateAbsentCeilingLeavesFlagUnset(t *testing.T) {
	t.Parallel()

	req, err := Validate("mouse", "", "electronics")
	require.NoError(t, err)
	require.False(t, req.HasCeiling)
	require.Equal(t, "electronics", req.Category)
}

func TestValidateRejectsOverlongCategory(t *testing.T) {
	t.Parallel()

	long := make([]byte, MaxCategoryLength+1)
	for i := range long {
		long[i] = 'c'
	}
	_, err := Validate("mouse", "", string(long))
	require.Error(t, err)
	require.True(t, IsValidationError(err))
}
