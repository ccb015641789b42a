package catalog

// BarcodeLength is the number of digits in an EAN-13 code.
const BarcodeLength = 13

// Barcode is an EAN-13 value object. The zero value means "no barcode".
type Barcode struct {
	value string
}

// NewBarcode validates code as an EAN-13 barcode: exactly 13 digits where the
// last digit is the weighted checksum of the first 12.
func NewBarcode(code string) (Barcode, error) {
	if len(code) != BarcodeLength {
		return Barcode{}, NewValidationError(KindInvalidBarcode, FieldBarcode, code, "barcode must have exactly 13 digits")
	}
	if !allDigits(code) {
		return Barcode{}, NewValidationError(KindInvalidBarcode, FieldBarcode, code, "barcode must contain only digits")
	}

	check, _ := EAN13CheckDigit(code[:BarcodeLength-1])
	if int(code[BarcodeLength-1]-'0') != check {
		return Barcode{}, NewValidationError(KindInvalidBarcode, FieldBarcode, code, "barcode checksum does not match")
	}

	return Barcode{value: code}, nil
}

// EAN13CheckDigit computes the check digit for the first 12 digits of an
// EAN-13 code. Digits are weighted 1 and 3 alternately, starting with 1.
func EAN13CheckDigit(first12 string) (int, error) {
	if len(first12) != BarcodeLength-1 || !allDigits(first12) {
		return 0, NewValidationError(KindInvalidBarcode, FieldBarcode, first12, "checksum input must be 12 digits")
	}

	sum := 0
	for i := 0; i < len(first12); i++ {
		d := int(first12[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return (10 - sum%10) % 10, nil
}

// String returns the barcode digits, or an empty string for the zero value.
func (b Barcode) String() string { return b.value }

// IsZero reports whether b holds no barcode.
func (b Barcode) IsZero() bool { return b.value == "" }

// MarshalText implements [encoding.TextMarshaler].
func (b Barcode) MarshalText() ([]byte, error) {
	return []byte(b.value), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler]. Empty text decodes to
// the zero value.
func (b *Barcode) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*b = Barcode{}
		return nil
	}
	parsed, err := NewBarcode(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
