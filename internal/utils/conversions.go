package utils

// ToStringSlice keeps the string elements of slice, dropping everything else.
func ToStringSlice(slice []any) []string {
	stringSlice := make([]string, 0)
	for _, v := range slice {
		if s, ok := v.(string); ok {
			stringSlice = append(stringSlice, s)
		}
	}
	return stringSlice
}

// FirstString returns the first element of values, or "" when empty.
func FirstString(values []string) (string, bool) {
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}
