package lexer

import "slices"

// keywords are FORM statements and statement options.
//
// Words that FORM also uses to declare objects (table, dimension, ...) are
// listed only in declarations so that they classify as Declaration.
var keywords = newWordSet(
	"if", "else", "elseif", "endif", "while", "endwhile", "repeat", "endrepeat",
	"do", "enddo", "goto", "label", "exit", "break", "continue", "return",
	"procedure", "endprocedure", "call", "argument", "endargument",
	"switch", "case", "default", "endswitch", "inside", "endinside",
	"term", "endterm", "sort", "endsort", "multiply", "also", "once", "only",
	"multi", "all", "first", "last", "disorder", "antisymmetrize", "symmetrize",
	"cyclesymmetrize", "rcyclesymmetrize", "identify", "idnew", "idold",
	"chainout", "chainin", "splitarg", "splitfirstarg", "splitlastarg",
	"factarg", "normalize", "makeinteger", "torat", "topolynomial",
	"frompolynomial", "argtoextrasymbol", "dropcoefficient", "dropextrasymbols",
	"polyratfun", "ratfun", "keep", "drop", "hide", "unhide", "skip", "nskip",
	"moduleoption", "on", "off", "format", "write", "redefine", "renumber",
	"contract", "trace4", "tracen", "chisholm", "unittrace", "delete", "discard",
	"print", "nprint", "collect", "bracket", "antibracket", "putinside",
	"polyfun", "sum", "id", "fill", "fillexpression", "testuse", "apply",
	"transform", "replace", "replaceloop", "totensor", "tovector", "fromtensor",
	"metric", "load", "save", "copyspecs", "setexitflag", "nwrite",
	"threadbucketsize", "processbucketsize",
)

// declarations introduce symbols, expressions and other named objects.
var declarations = newWordSet(
	"symbol", "symbols", "index", "indices", "vector", "vectors",
	"tensor", "tensors", "ntensor", "ntensors", "function", "functions",
	"cfunction", "cfunctions", "ctensor", "ctensors", "nfunction", "nfunctions",
	"ncfunction", "ncfunctions", "table", "tables", "ctable", "ctables",
	"tablebase", "set", "sets", "local", "global", "auto", "autodeclare",
	"dimension", "fixindex", "unfixindex", "extrasymbol", "extrasymbols",
	"commuting", "noncommuting",
)

// builtins are the built-in functions and objects of the FORM runtime.
var builtins = newWordSet(
	"abs", "sign", "min", "max", "mod", "div", "gcd", "fac", "binom",
	"bernoulli", "sqrt", "sin", "cos", "tan", "asin", "acos", "atan",
	"atan2", "sinh", "cosh", "tanh", "asinh", "acosh", "atanh", "exp",
	"ln", "log", "log10", "li2", "li3", "nielsen", "hpl", "mzv", "zeta",
	"gamma", "polygamma", "psi", "digamma", "theta", "delta_", "d_", "e_",
	"i_", "f_", "g_", "gi_", "dd_", "conjg_", "deno", "farg", "nargs",
	"firstarg", "lastarg", "numterms", "termsin", "maxpow", "minpow",
	"exponent", "coeff", "content", "integer_", "symbol_", "index_",
	"vector_", "fixed_", "match", "count", "occurs", "multipleof", "prime",
	"random_", "tbl_", "term_", "expression_", "dummyindices", "extrasymbol_",
	"getdummies", "nterms", "sump_", "sum_", "prod_", "inv_", "root_",
	"replace_", "setfun", "putfirst", "addargs", "mulargs", "permute",
	"reverse", "delta", "epsilon", "distrib_", "sig_", "factorin_", "gcd_",
	"div_", "rem_", "inverse_", "makerational", "rat", "num_", "den_",
	"derive", "accum", "pcount_", "firstbracket_", "table_", "defined_",
	"termsinbracket_", "maxpower_", "minpower_", "ranperm_", "exists_",
	"pattern_", "setspec_", "exec_", "partitions_", "compargs_",
	"commutearg_", "sortarg_", "dedup_",
)

type wordSet map[string]struct{}

func newWordSet(words ...string) wordSet {
	s := make(wordSet, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

func (s wordSet) has(folded string) bool {
	_, ok := s[folded]
	return ok
}

// IsKeyword reports whether word is a FORM statement keyword, ignoring case.
func IsKeyword(word string) bool { return keywords.has(fold(word)) }

// IsDeclaration reports whether word is a FORM declaration keyword, ignoring case.
func IsDeclaration(word string) bool { return declarations.has(fold(word)) }

// IsBuiltin reports whether word names a FORM built-in function, ignoring case.
func IsBuiltin(word string) bool { return builtins.has(fold(word)) }

// Words returns every keyword, declaration and builtin name, for completion.
func Words() []string {
	out := make([]string, 0, len(keywords)+len(declarations)+len(builtins))
	for _, set := range []wordSet{keywords, declarations, builtins} {
		for w := range set {
			out = append(out, w)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
