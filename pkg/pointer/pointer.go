// Package pointer helps with the optional columns of stored records.
package pointer

// To returns a pointer to value.
func To[T any](value T) *T {
	return &value
}

// Copy returns a pointer to a copy of *value, or nil.
func Copy[T any](value *T) *T {
	if value == nil {
		return nil
	}
	return To(*value)
}

// OrDefault returns value if not nil, otherwise a pointer to defaultValue.
func OrDefault[T any](value *T, defaultValue T) *T {
	if value != nil {
		return value
	}
	return &defaultValue
}

// IfValid returns a pointer to value if valid, otherwise nil. It pairs with
// sql.Null* scans.
func IfValid[T any](valid bool, value T) *T {
	if valid {
		return &value
	}
	return nil
}

func String(value string) *string { return To(value) }

func StringCopy(value *string) *string { return Copy(value) }

func StringOrDefault(value *string, defaultValue string) *string {
	return OrDefault(value, defaultValue)
}

func StringIfValid(valid bool, value string) *string { return IfValid(valid, value) }

func Uint64(value uint64) *uint64 { return To(value) }

func Uint64Copy(value *uint64) *uint64 { return Copy(value) }

func Uint64OrDefault(value *uint64, defaultValue uint64) *uint64 {
	return OrDefault(value, defaultValue)
}

func Uint64IfValid(valid bool, value uint64) *uint64 { return IfValid(valid, value) }
