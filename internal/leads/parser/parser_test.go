package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/leadbot/internal/leads/domain"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want domain.ClientInput
	}{
		{"plain", "คุณกรณี 0641989925 สนใจสินค้าค่ะ ติดต่อกลับด่วน",
			domain.ClientInput{Name: "คุณกรณี", Phone: "0641989925", Address: "สนใจสินค้าค่ะ ติดต่อกลับด่วน"}},
		{"no address", "คุณกรณี 0641989925",
			domain.ClientInput{Name: "คุณกรณี", Phone: "0641989925"}},
		{"dash form", "-คุณสมชาย-0812345678-ต้องการสินค้าด่วน",
			domain.ClientInput{Name: "คุณสมชาย", Phone: "0812345678", Address: "ต้องการสินค้าด่วน"}},
		{"command marker", "#ลูกค้า คุณสมชาย 081-234-5678 Bangkok",
			domain.ClientInput{Name: "คุณสมชาย", Phone: "0812345678", Address: "Bangkok"}},
		{"spaced phone", "John   Smith 081 234 5678",
			domain.ClientInput{Name: "John Smith", Phone: "0812345678"}},
		{"no phone", "  คุณ  สมหญิง  ",
			domain.ClientInput{Name: "คุณ สมหญิง"}},
		{"nine digits is not a phone", "คุณเอ 081234567 note",
			domain.ClientInput{Name: "คุณเอ 081234567 note"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseRejectsLongerDigitRuns(t *testing.T) {
	got, err := Parse("คุณบี 08123456789 x")
	require.NoError(t, err)
	assert.Empty(t, got.Phone, "an 11 digit run must not yield a phone")

	got, err = Parse("คุณซี 12345678901 0812345678 note")
	require.NoError(t, err)
	assert.Equal(t, "0812345678", got.Phone)
	assert.Equal(t, "คุณซี 12345678901", got.Name)
	assert.Equal(t, "note", got.Address)
}

func TestParseRequiresName(t *testing.T) {
	for _, in := range []string{"0812345678 สนใจ", "#ลูกค้า", "  ", "--0812345678"} {
		_, err := Parse(in)
		require.Error(t, err, in)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		assert.Equal(t, MsgNameRequired, domain.MessageOf(err))
	}
}

func TestParsedPhoneIsTenDigits(t *testing.T) {
	inputs := []string{
		"a 081-234-5678 b",
		"a 0812345678b",
		"a0812345678",
		"name 111 222 3333",
	}
	for _, in := range inputs {
		got, err := Parse(in)
		require.NoError(t, err, in)
		if got.Phone != "" {
			assert.Len(t, got.Phone, 10, in)
			assert.Regexp(t, `^\d{10}$`, got.Phone, in)
		}
	}
}

func TestLooksLikeClientInput(t *testing.T) {
	assert.True(t, LooksLikeClientInput("คุณกรณี"))
	assert.True(t, LooksLikeClientInput("somebody 081234567"))
	assert.True(t, LooksLikeClientInput("x0812345678"))
	assert.False(t, LooksLikeClientInput("help"))
	assert.False(t, LooksLikeClientInput("call 12345678"))
}

func TestSearchTerm(t *testing.T) {
	term, ok := SearchTerm("#ลูกค้า  คุณกรณี ")
	assert.True(t, ok)
	assert.Equal(t, "คุณกรณี", term)

	term, ok = SearchTerm("#ลูกค้า")
	assert.True(t, ok)
	assert.Empty(t, term)

	_, ok = SearchTerm("คุณกรณี #ลูกค้า")
	assert.False(t, ok)
}

func TestPhoneQuery(t *testing.T) {
	assert.Equal(t, "0812345678", PhoneQuery("+66812345678"))
	assert.Equal(t, "0812345678", PhoneQuery("081-234-5678"))
	assert.Empty(t, PhoneQuery("คุณกรณี"))
	assert.Empty(t, PhoneQuery("123"))
}
