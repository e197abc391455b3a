package core

import "testing"

func TestDataQualityErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *DataQualityError
		want string
	}{
		{
			name: "cell",
			err:  &DataQualityError{Column: "qValue_A", Row: 3, Protein: "HBA", Value: "0", Reason: "q-value must be positive"},
			want: `data quality error in column "qValue_A", row 3 (protein HBA): q-value must be positive: "0"`,
		},
		{
			name: "cell without protein",
			err:  &DataQualityError{Column: "qValue_A", Row: 1, Value: "x", Reason: "q-value is not numeric"},
			want: `data quality error in column "qValue_A", row 1: q-value is not numeric: "x"`,
		},
		{
			name: "whole column",
			err:  &DataQualityError{Column: "log2ratio_A", Reason: "no finite log2 ratio"},
			want: `data quality error in column "log2ratio_A": no finite log2 ratio`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}
