package transformer

import "go/token"

const andOp = token.LAND

// operatorNames maps comparison tokens to the probe operator constants.
var operatorNames = map[token.Token]string{
	token.EQL: "EQ",
	token.NEQ: "NE",
	token.LSS: "LT",
	token.LEQ: "LE",
	token.GTR: "GT",
	token.GEQ: "GE",
}

func isComparisonOp(op token.Token) bool {
	_, ok := operatorNames[op]

	return ok
}

func isOrderingOp(op token.Token) bool {
	return op == token.LSS || op == token.GTR || op == token.LEQ || op == token.GEQ
}

func isLogicalOp(op token.Token) bool {
	return op == token.LAND || op == token.LOR
}

func isNotOp(op token.Token) bool {
	return op == token.NOT
}
