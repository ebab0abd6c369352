package schedule

import "testing"

func TestValidateCronExpr(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		expr string
		want bool
	}{
		{name: "all wildcards", expr: "* * * * *", want: true},
		{name: "numbers", expr: "0 9 1 6 0", want: true},
		{name: "range", expr: "0 9 * * 1-5", want: true},
		{name: "list", expr: "0 9,12,18 * * *", want: true},
		{name: "step", expr: "*/5 * * * *", want: true},
		{name: "range with step", expr: "0-30/10 * * * *", want: true},
		{name: "leading whitespace", expr: "  0 9 * * 1  ", want: true},

		{name: "empty", expr: "", want: false},
		{name: "four fields", expr: "* * * *", want: false},
		{name: "six fields", expr: "* * * * * *", want: false},
		{name: "descriptor", expr: "@hourly", want: false},
		{name: "garbage", expr: "not a cron", want: false},
		{name: "minute out of range", expr: "61 * * * *", want: false},
		{name: "bad range", expr: "5-1x * * * *", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateCronExpr(tt.expr); got != tt.want {
				t.Fatalf("ValidateCronExpr(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}
