package bytecode

// ArgMode describes how an instruction uses its b or c param.
type ArgMode uint8

// OpInfo is the static metadata of an opcode.
type OpInfo struct {
	Name string
	// Test instructions are followed by a conditional jump.
	Test bool
	// SetA instructions write register a.
	SetA bool
	B    ArgMode
	C    ArgMode
	Mode Type
}

const (
	// OpArgN argument is not used.
	OpArgN ArgMode = iota
	// OpArgU argument is used as is.
	OpArgU
	// OpArgR argument is a register or a jump offset.
	OpArgR
	// OpArgK argument is a constant or register.
	OpArgK
)

const (
	// MOVE Copy a value between registers.
	MOVE Op = iota
	// LOADK Load a constant into a register.
	LOADK
	// LOADKX Load a constant indexed by the following EXTRAARG into a register.
	LOADKX
	// LOADBOOL Load a boolean into a register.
	LOADBOOL
	// LOADNIL Load nil values into a range of registers.
	LOADNIL
	// GETUPVAL Read an upvalue into a register.
	GETUPVAL
	// GETTABUP Read a value from table in up-value into a register.
	GETTABUP
	// GETTABLE Read a table element into a register.
	GETTABLE
	// SETTABUP Write a register value into table in up-value.
	SETTABUP
	// SETUPVAL Write a register value into an upvalue.
	SETUPVAL
	// SETTABLE Write a register value into a table element.
	SETTABLE
	// NEWTABLE Create a new table.
	NEWTABLE
	// SELF Prepare an object method for calling.
	SELF
	// ADD Addition operator.
	ADD
	// SUB Subtraction operator.
	SUB
	// MUL Multiplication operator.
	MUL
	// MOD Modulus (remainder) operator.
	MOD
	// POW Exponentation operator.
	POW
	// DIV Division operator.
	DIV
	// IDIV Integer division operator.
	IDIV
	// BAND Bit-wise AND operator.
	BAND
	// BOR Bit-wise OR operator.
	BOR
	// BXOR Bit-wise Exclusive OR operator.
	BXOR
	// SHL Shift bits left.
	SHL
	// SHR Shift bits right.
	SHR
	// UNM Unary minus.
	UNM
	// BNOT Bit-wise NOT operator.
	BNOT
	// NOT Logical NOT operator.
	NOT
	// LEN Length operator.
	LEN
	// CONCAT Concatenate a range of registers.
	CONCAT
	// JMP Unconditional jump, closes upvalues when a > 0.
	JMP
	// EQ Equality test, with conditional jump.
	EQ
	// LT Less than test, with conditional jump.
	LT
	// LE Less than or equal to test, with conditional jump.
	LE
	// TEST Boolean test, with conditional jump.
	TEST
	// TESTSET Boolean test, with conditional jump and assignment.
	TESTSET
	// CALL Call a closure.
	CALL
	// TAILCALL Perform a tail call.
	TAILCALL
	// RETURN Return from function call.
	RETURN
	// FORLOOP Iterate a numeric for loop.
	FORLOOP
	// FORPREP Initialization for a numeric for loop.
	FORPREP
	// TFORCALL Call the iterator of a generic for loop.
	TFORCALL
	// TFORLOOP Iterate a generic for loop.
	TFORLOOP
	// SETLIST Set a range of array elements for a table.
	SETLIST
	// CLOSURE Create a closure of a function prototype.
	CLOSURE
	// VARARG Assign vararg function arguments to registers.
	VARARG
	// EXTRAARG Extra (larger) argument for the previous opcode.
	EXTRAARG
	// NumOps is the count of defined opcodes. max possible is 6 bits or 64 codes.
	NumOps
)

// Info is the opcode metadata table, indexed by Op.
var Info = [NumOps]OpInfo{
	MOVE:     {"MOVE", false, true, OpArgR, OpArgN, TypeABC},
	LOADK:    {"LOADK", false, true, OpArgK, OpArgN, TypeABx},
	LOADKX:   {"LOADKX", false, true, OpArgN, OpArgN, TypeABx},
	LOADBOOL: {"LOADBOOL", false, true, OpArgU, OpArgU, TypeABC},
	LOADNIL:  {"LOADNIL", false, true, OpArgU, OpArgN, TypeABC},
	GETUPVAL: {"GETUPVAL", false, true, OpArgU, OpArgN, TypeABC},
	GETTABUP: {"GETTABUP", false, true, OpArgU, OpArgK, TypeABC},
	GETTABLE: {"GETTABLE", false, true, OpArgR, OpArgK, TypeABC},
	SETTABUP: {"SETTABUP", false, false, OpArgK, OpArgK, TypeABC},
	SETUPVAL: {"SETUPVAL", false, false, OpArgU, OpArgN, TypeABC},
	SETTABLE: {"SETTABLE", false, false, OpArgK, OpArgK, TypeABC},
	NEWTABLE: {"NEWTABLE", false, true, OpArgU, OpArgU, TypeABC},
	SELF:     {"SELF", false, true, OpArgR, OpArgK, TypeABC},
	ADD:      {"ADD", false, true, OpArgK, OpArgK, TypeABC},
	SUB:      {"SUB", false, true, OpArgK, OpArgK, TypeABC},
	MUL:      {"MUL", false, true, OpArgK, OpArgK, TypeABC},
	MOD:      {"MOD", false, true, OpArgK, OpArgK, TypeABC},
	POW:      {"POW", false, true, OpArgK, OpArgK, TypeABC},
	DIV:      {"DIV", false, true, OpArgK, OpArgK, TypeABC},
	IDIV:     {"IDIV", false, true, OpArgK, OpArgK, TypeABC},
	BAND:     {"BAND", false, true, OpArgK, OpArgK, TypeABC},
	BOR:      {"BOR", false, true, OpArgK, OpArgK, TypeABC},
	BXOR:     {"BXOR", false, true, OpArgK, OpArgK, TypeABC},
	SHL:      {"SHL", false, true, OpArgK, OpArgK, TypeABC},
	SHR:      {"SHR", false, true, OpArgK, OpArgK, TypeABC},
	UNM:      {"UNM", false, true, OpArgR, OpArgN, TypeABC},
	BNOT:     {"BNOT", false, true, OpArgR, OpArgN, TypeABC},
	NOT:      {"NOT", false, true, OpArgR, OpArgN, TypeABC},
	LEN:      {"LEN", false, true, OpArgR, OpArgN, TypeABC},
	CONCAT:   {"CONCAT", false, true, OpArgR, OpArgR, TypeABC},
	JMP:      {"JMP", false, false, OpArgR, OpArgN, TypeAsBx},
	EQ:       {"EQ", true, false, OpArgK, OpArgK, TypeABC},
	LT:       {"LT", true, false, OpArgK, OpArgK, TypeABC},
	LE:       {"LE", true, false, OpArgK, OpArgK, TypeABC},
	TEST:     {"TEST", true, false, OpArgN, OpArgU, TypeABC},
	TESTSET:  {"TESTSET", true, true, OpArgR, OpArgU, TypeABC},
	CALL:     {"CALL", false, true, OpArgU, OpArgU, TypeABC},
	TAILCALL: {"TAILCALL", false, true, OpArgU, OpArgU, TypeABC},
	RETURN:   {"RETURN", false, false, OpArgU, OpArgN, TypeABC},
	FORLOOP:  {"FORLOOP", false, true, OpArgR, OpArgN, TypeAsBx},
	FORPREP:  {"FORPREP", false, true, OpArgR, OpArgN, TypeAsBx},
	TFORCALL: {"TFORCALL", false, false, OpArgN, OpArgU, TypeABC},
	TFORLOOP: {"TFORLOOP", false, true, OpArgR, OpArgN, TypeAsBx},
	SETLIST:  {"SETLIST", false, false, OpArgU, OpArgU, TypeABC},
	CLOSURE:  {"CLOSURE", false, true, OpArgU, OpArgN, TypeABx},
	VARARG:   {"VARARG", false, true, OpArgU, OpArgN, TypeABC},
	EXTRAARG: {"EXTRAARG", false, false, OpArgU, OpArgU, TypeAx},
}

// Valid reports if the opcode has an entry in the metadata table.
func (op Op) Valid() bool { return op < NumOps }

func (op Op) String() string {
	if !op.Valid() {
		return "UNDEFINED"
	}
	return Info[op].Name
}
