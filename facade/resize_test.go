package facade

import "testing"

func TestCeilToPageRoundsUpToNextPage(t *testing.T) {
	cases := []struct{ n, pageSize, want int64 }{
		{1, 4096, 4096},
		{4095, 4096, 4096},
		{4097, 4096, 8192},
		{8191, 8192, 8192},
	}
	for _, c := range cases {
		if got := ceilToPage(c.n, c.pageSize); got != c.want {
			t.Errorf("ceilToPage(%d, %d) = %d, want %d", c.n, c.pageSize, got, c.want)
		}
	}
}

// TestCeilToPageBoundaryRegression pins the exact case where the
// source's buggy precedence and the corrected formula diverge: n an
// exact multiple of pageSize. The buggy expression collapses to
// n*pageSize+pageSize (wildly larger than n), while the corrected
// formula must return exactly n itself, since n is already
// page-aligned.
func TestCeilToPageBoundaryRegression(t *testing.T) {
	const pageSize = 4096
	n := int64(3 * pageSize)
	got := ceilToPage(n, pageSize)
	if got != n {
		t.Fatalf("ceilToPage(%d, %d) = %d, want %d (n is already page-aligned)", n, pageSize, got, n)
	}

	buggy := (n-1/pageSize)*pageSize + pageSize
	if got == buggy {
		t.Fatalf("corrected formula must not agree with the buggy precedence at this boundary")
	}
}

func TestCeilToPageZeroOrNegativeReturnsOnePage(t *testing.T) {
	if got := ceilToPage(0, 4096); got != 4096 {
		t.Errorf("expected one page for n=0, got %d", got)
	}
}
