package pagination

import "testing"

func TestNormalizeClampsPageSize(t *testing.T) {
	tests := []struct {
		name     string
		in       Params
		wantPage int
		wantSize int
	}{
		{"oversized page size clamped to max", Params{Page: 1, PageSize: 500}, 1, MaxPageSize},
		{"zero values get defaults", Params{}, 1, DefaultPageSize},
		{"negative page becomes first page", Params{Page: -3, PageSize: 10}, 1, 10},
		{"in-range values untouched", Params{Page: 4, PageSize: 50}, 4, 50},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.in.Normalize()
			if tc.in.Page != tc.wantPage || tc.in.PageSize != tc.wantSize {
				t.Errorf("Normalize() = page %d size %d, want page %d size %d",
					tc.in.Page, tc.in.PageSize, tc.wantPage, tc.wantSize)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	p := Params{Page: 3, PageSize: 25}
	if got := p.Offset(); got != 50 {
		t.Errorf("Offset() = %d, want 50", got)
	}
}

func TestNewPagedList(t *testing.T) {
	list := NewPagedList([]int{1, 2, 3}, 101, 2, 25)
	if list.TotalPages != 5 {
		t.Errorf("TotalPages = %d, want 5", list.TotalPages)
	}
	if list.TotalCount != 101 || list.CurrentPage != 2 || list.PageSize != 25 {
		t.Errorf("unexpected envelope: %+v", list)
	}

	empty := NewPagedList[int](nil, 0, 1, 25)
	if empty.Items == nil || len(empty.Items) != 0 {
		t.Error("nil items should serialize as an empty slice")
	}
	if empty.TotalPages != 0 {
		t.Errorf("TotalPages = %d, want 0", empty.TotalPages)
	}
}
