package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuild_PrefersDataTestID(t *testing.T) {
	el := ElementInfo{
		TagName:    "div",
		ID:         "price-box",
		ClassList:  []string{"price"},
		Attributes: map[string]string{"data-testid": "price"},
	}
	assert.Equal(t, `[data-testid="price"]`, Build(el))
}

func TestBuild_DataAttributePriority(t *testing.T) {
	el := ElementInfo{
		TagName: "span",
		Attributes: map[string]string{
			"data-qa":     "qa-price",
			"data-testid": "the-price",
		},
	}
	// data-testid outranks data-qa
	assert.Equal(t, `[data-testid="the-price"]`, Build(el))
}

func TestBuild_StableID(t *testing.T) {
	el := ElementInfo{TagName: "div", ID: "product-price"}
	assert.Equal(t, "#product-price", Build(el))
}

func TestBuild_RejectsGeneratedIDs(t *testing.T) {
	for _, id := range []string{
		"a1b2c3d4e5f6",          // hex
		"x9k2m4p8q1w5z7r3t6y0u", // long alphanumeric
		":r42:",                 // React useId
		"ember123",
		"__next2",
		"widget_a3f9",
		"item1700000000123",
	} {
		el := ElementInfo{TagName: "div", ID: id, ClassList: []string{"price"}}
		got := Build(el)
		assert.NotContains(t, got, id, "id %q must not be used", id)
	}
}

func TestBuild_StableClasses(t *testing.T) {
	el := ElementInfo{
		TagName:   "span",
		ClassList: []string{"price-current", "css-1x2y3z", "bold"},
	}
	assert.Equal(t, "span.price-current.bold", Build(el))
}

func TestBuild_AtMostTwoClasses(t *testing.T) {
	el := ElementInfo{
		TagName:   "div",
		ClassList: []string{"product", "price", "title", "name"},
	}
	assert.Equal(t, "div.product.price", Build(el))
}

func TestBuild_RejectsGeneratedClasses(t *testing.T) {
	el := ElementInfo{
		TagName:   "span",
		ClassList: []string{"css-k2jf8s", "sc-bdVaJa", "_abc123", "aButtonWrap"},
		NthOfType: 2,
	}
	assert.Equal(t, "span:nth-of-type(2)", Build(el))
}

func TestBuild_AncestorPath(t *testing.T) {
	el := ElementInfo{
		TagName:   "span",
		NthOfType: 3,
		ParentPath: []ElementInfo{
			{TagName: "body"},
			{TagName: "main", ID: "content"},
			{TagName: "div", ClassList: []string{"product-card"}},
		},
	}
	assert.Equal(t, "#content > div.product-card > span:nth-of-type(3)", Build(el))
}

func TestBuild_PathCapsAncestors(t *testing.T) {
	el := ElementInfo{
		TagName:   "b",
		NthOfType: 1,
		ParentPath: []ElementInfo{
			{TagName: "div", ID: "level1"},
			{TagName: "div", ID: "level2"},
			{TagName: "div", ID: "level3"},
			{TagName: "div", ID: "level4"},
		},
	}
	got := Build(el)
	// only the three nearest ancestors participate
	assert.NotContains(t, got, "level1")
	assert.Equal(t, "#level2 > #level3 > #level4 > b:nth-of-type(1)", got)
}

func TestBuild_Fallbacks(t *testing.T) {
	assert.Equal(t, "body", Build(ElementInfo{}))
	assert.Equal(t, "div", Build(ElementInfo{TagName: "DIV"}))
	assert.Equal(t, "div:nth-of-type(4)", Build(ElementInfo{TagName: "div", NthOfType: 4}))
}

func TestBuild_EscapesSpecialCharacters(t *testing.T) {
	el := ElementInfo{
		TagName:    "div",
		Attributes: map[string]string{"data-testid": `pri"ce`},
	}
	assert.Equal(t, `[data-testid="pri\"ce"]`, Build(el))

	el = ElementInfo{TagName: "div", ID: "price:main"}
	assert.Equal(t, `#price\:main`, Build(el))
}

func TestIsStableClass(t *testing.T) {
	for class, want := range map[string]bool{
		"price":        true,
		"product-name": true,
		"total":        true,
		"css-1a2b3c":   false,
		"sc-bdVaJa":    false,
		"_x1y2":        false,
		"ab":           false, // too short
		"a1":           false,
	} {
		assert.Equal(t, want, isStableClass(class), class)
	}
}
