package theme

// palette holds colors as lipgloss color strings: ANSI indexes ("12") or
// hex ("#f92672"). An empty string leaves that element uncolored.
type palette struct {
	keyword      string
	declaration  string
	builtin      string
	preprocessor string
	number       string
	operator     string
	comment      string
	str          string
	identifier   string

	prompt      string
	output      string
	outputLabel string
	timing      string
	err         string

	boldKeywords bool
}

// DefaultName is the theme used when none is configured.
const DefaultName = "default"

var palettes = map[string]palette{
	"default": {
		keyword:      "12",
		declaration:  "13",
		builtin:      "14",
		preprocessor: "11",
		number:       "10",
		operator:     "7",
		comment:      "8",
		str:          "2",
		prompt:       "10",
		outputLabel:  "9",
		timing:       "8",
		err:          "9",
		boldKeywords: true,
	},
	"solarized-dark": {
		keyword:      "#268bd2",
		declaration:  "#d33682",
		builtin:      "#2aa198",
		preprocessor: "#b58900",
		number:       "#859900",
		operator:     "#93a1a1",
		comment:      "#586e75",
		str:          "#2aa198",
		identifier:   "#839496",
		prompt:       "#268bd2",
		output:       "#859900",
		outputLabel:  "#cb4b16",
		timing:       "#586e75",
		err:          "#dc322f",
	},
	"monokai": {
		keyword:      "#f92672",
		declaration:  "#66d9ef",
		builtin:      "#a6e22e",
		preprocessor: "#fd971f",
		number:       "#ae81ff",
		operator:     "#f92672",
		comment:      "#75715e",
		str:          "#e6db74",
		identifier:   "#f8f8f2",
		prompt:       "208",
		output:       "142",
		outputLabel:  "#fd971f",
		timing:       "#75715e",
		err:          "168",
		boldKeywords: true,
	},
	"dracula": {
		keyword:      "#ff79c6",
		declaration:  "#8be9fd",
		builtin:      "#50fa7b",
		preprocessor: "#ffb86c",
		number:       "#bd93f9",
		operator:     "#ff79c6",
		comment:      "#6272a4",
		str:          "#f1fa8c",
		identifier:   "#f8f8f2",
		prompt:       "140",
		output:       "84",
		outputLabel:  "#bd93f9",
		timing:       "#6272a4",
		err:          "210",
	},
	"nord": {
		keyword:      "#81a1c1",
		declaration:  "#8fbcbb",
		builtin:      "#88c0d0",
		preprocessor: "#5e81ac",
		number:       "#b48ead",
		operator:     "#81a1c1",
		comment:      "#616e88",
		str:          "#a3be8c",
		identifier:   "#d8dee9",
		prompt:       "#88c0d0",
		output:       "#a3be8c",
		outputLabel:  "#ebcb8b",
		timing:       "#616e88",
		err:          "#bf616a",
	},
	"gruvbox": {
		keyword:      "#fb4934",
		declaration:  "#fabd2f",
		builtin:      "#8ec07c",
		preprocessor: "#fe8019",
		number:       "#d3869b",
		operator:     "#ebdbb2",
		comment:      "#928374",
		str:          "#b8bb26",
		identifier:   "#ebdbb2",
		prompt:       "#b8bb26",
		output:       "#ebdbb2",
		outputLabel:  "#83a598",
		timing:       "#928374",
		err:          "#fb4934",
		boldKeywords: true,
	},
	"one-dark": {
		keyword:      "#c678dd",
		declaration:  "#e5c07b",
		builtin:      "#61afef",
		preprocessor: "#d19a66",
		number:       "#d19a66",
		operator:     "#56b6c2",
		comment:      "#5c6370",
		str:          "#98c379",
		identifier:   "#abb2bf",
		prompt:       "#61afef",
		output:       "#abb2bf",
		outputLabel:  "#e06c75",
		timing:       "#5c6370",
		err:          "#e06c75",
	},
	// Monochrome: structure only, no color.
	"plain": {},
}

var aliases = map[string]string{
	"solarized":      "solarized-dark",
	"solarized_dark": "solarized-dark",
	"onedark":        "one-dark",
	"one_dark":       "one-dark",
	"none":           "plain",
	"mono":           "plain",
}
