package grammar

const (
	ruleRoot    = "root"
	ruleValue   = "value"
	ruleNull    = "null"
	ruleBoolean = "boolean"
	ruleInteger = "integer"
	ruleNumber  = "number"
	ruleString  = "string"
	ruleArray   = "array"
	ruleObject  = "object"
	ruleKVPair  = "kv-pair"
	ruleSpace   = "space"
)

// builtinOrder is the order in which referenced built-in productions are
// rendered, after every schema production.
var builtinOrder = []string{
	ruleValue,
	ruleNull,
	ruleBoolean,
	ruleInteger,
	ruleNumber,
	ruleString,
	ruleArray,
	ruleObject,
	ruleKVPair,
	ruleSpace,
}

var builtinRules = map[string]string{
	ruleValue:   `null | boolean | number | string | array | object`,
	ruleNull:    `"null"`,
	ruleBoolean: `"true" | "false"`,
	ruleInteger: `"-"? ([0-9] | [1-9] [0-9]*)`,
	ruleNumber:  `integer ("." [0-9]+)? ([eE] [-+]? [0-9]+)?`,
	ruleString:  `"\"" ([^"\\\x7F\x00-\x1F] | "\\" (["\\/bfnrt] | "u" [0-9a-fA-F] [0-9a-fA-F] [0-9a-fA-F] [0-9a-fA-F]))* "\""`,
	ruleArray:   `"[" space (value space ("," space value space)*)? "]"`,
	ruleObject:  `"{" space (kv-pair space ("," space kv-pair space)*)? "}"`,
	ruleKVPair:  `string space ":" space value`,
}

var spaceRules = map[Whitespace]string{
	WhitespaceSingle:   `" "?`,
	WhitespaceNone:     `""`,
	WhitespaceFlexible: `(" " | "\t" | "\n" | "\r")*`,
}

// typeRules maps the "type" of a schema with no other keywords to the
// built-in production that accepts it.
var typeRules = map[string]string{
	"null":    ruleNull,
	"boolean": ruleBoolean,
	"integer": ruleInteger,
	"number":  ruleNumber,
	"string":  ruleString,
	"array":   ruleArray,
	"object":  ruleObject,
}

func isBuiltin(name string) bool {
	_, ok := builtinRules[name]
	return ok || name == ruleSpace
}
