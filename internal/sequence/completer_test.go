package sequence

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brogergvhs/comicgrab/internal/extract"
)

func pages(n int) []extract.Candidate {
	out := make([]extract.Candidate, 0, n)
	for i := 1; i <= n; i++ {
		u := fmt.Sprintf("https://cdn.x/%02d.jpg", i)
		out = append(out, extract.Candidate{Raw: u, URL: u, Number: i, Order: i})
	}
	return out
}

func TestCompleteNoHintReturnsInputUnchanged(t *testing.T) {
	in := pages(5)

	got := Complete(in, `<html><body><div class="reading-content"></div></body></html>`)

	assert.Equal(t, in, got)
}

func TestCompleteFillsToReportedTotal(t *testing.T) {
	in := pages(5)
	html := `<select id="single-pager">
		<option>1</option><option>2</option><option>3</option><option>4</option>
		<option>5</option><option>6</option><option>7</option><option>8</option>
	</select>`

	got := Complete(in, html)

	require.Len(t, got, 8)
	for i, c := range got {
		assert.Equal(t, fmt.Sprintf("https://cdn.x/%02d.jpg", i+1), c.URL)
		assert.Equal(t, i+1, c.Number)
	}
}

func TestCompleteFillsInternalGaps(t *testing.T) {
	// page 3 was never rendered into the DOM, site reports 6 pages
	all := pages(4)
	in := []extract.Candidate{all[0], all[1], all[3]}
	html := `<span class="page-progress">1/6</span>`

	got := Complete(in, html)

	require.Len(t, got, 6)
	assert.Equal(t, "https://cdn.x/03.jpg", got[2].URL)
	assert.Equal(t, "https://cdn.x/05.jpg", got[4].URL)
	assert.Equal(t, "https://cdn.x/06.jpg", got[5].URL)
}

func TestCompleteKeepsExistingEntriesVerbatim(t *testing.T) {
	in := pages(5)
	in[0].Raw = "/01.jpg" // discovery kept the raw relative form

	html := `<span class="pager">1/7</span>`
	got := Complete(in, html)

	require.Len(t, got, 7)
	assert.Equal(t, "/01.jpg", got[0].Raw)
}

func TestCompleteAbortsWhenTemplateDoesNotReproduceSample(t *testing.T) {
	in := pages(5)
	in[1].URL = "https://cdn.x/cover-b.jpg" // breaks the template
	in[1].Number = extract.NoNumber

	html := `<span class="pager">1/9</span>`
	got := Complete(in, html)

	assert.Equal(t, in, got)
}

func TestCompleteRequiresMinimumSample(t *testing.T) {
	in := pages(2)
	html := `<span class="pager">1/9</span>`

	assert.Equal(t, in, Complete(in, html))
}

func TestCompleteNeverReducesCount(t *testing.T) {
	for _, n := range []int{3, 5, 12} {
		in := pages(n)
		got := Complete(in, `<span class="pager">1/4</span>`)
		assert.GreaterOrEqual(t, len(got), len(in))
	}
}

func TestCompletePreservesZeroPadding(t *testing.T) {
	in := []extract.Candidate{}
	for i := 1; i <= 3; i++ {
		u := fmt.Sprintf("https://cdn.x/p/%03d.webp", i)
		in = append(in, extract.Candidate{Raw: u, URL: u, Number: i, Order: i})
	}

	got := Complete(in, `<span class="pager">1/5</span>`)

	require.Len(t, got, 5)
	assert.Equal(t, "https://cdn.x/p/004.webp", got[3].URL)
	assert.Equal(t, "https://cdn.x/p/005.webp", got[4].URL)
}

func TestEstimateTotal(t *testing.T) {
	tests := []struct {
		name string
		html string
		want int
	}{
		{"pager options", `<select id="single-pager"><option>1</option><option>2</option><option>3</option></select>`, 3},
		{"slash progress", `<div class="page-counter">2/18</div>`, 18},
		{"packed progress", `<span id="pageNum">118</span>`, 18},
		{"no signal", `<div>welcome</div>`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateTotal(tt.html))
		})
	}
}

func TestDeriveTemplate(t *testing.T) {
	tmpl, ok := Derive("https://cdn.x/ch-3/007.jpg")
	require.True(t, ok)
	assert.Equal(t, 3, tmpl.Width)
	assert.Equal(t, "https://cdn.x/ch-3/012.jpg", tmpl.URLFor(12))

	_, ok = Derive("https://cdn.x/cover.jpg")
	assert.False(t, ok)
}
