package runtime

import (
	"math"

	"github.com/tanema/lvm/src/bytecode"
	"github.com/tanema/lvm/src/conf"
	"github.com/tanema/lvm/src/lerrors"
)

// opHandler executes one decoded instruction against the running frame.
// Register operands are converted to 1 based stack indexes before use.
type opHandler func(vm *VM, instruction uint32) error

var jumpTable [bytecode.NumOps]opHandler

func init() {
	jumpTable = [bytecode.NumOps]opHandler{
		bytecode.MOVE:     opMove,
		bytecode.LOADK:    opLoadK,
		bytecode.LOADKX:   opLoadKx,
		bytecode.LOADBOOL: opLoadBool,
		bytecode.LOADNIL:  opLoadNil,
		bytecode.GETUPVAL: opGetUpval,
		bytecode.GETTABUP: opGetTabUp,
		bytecode.GETTABLE: opGetTable,
		bytecode.SETTABUP: opSetTabUp,
		bytecode.SETUPVAL: opSetUpval,
		bytecode.SETTABLE: opSetTable,
		bytecode.NEWTABLE: opNewTable,
		bytecode.SELF:     opSelf,
		bytecode.ADD:      opBinaryArith,
		bytecode.SUB:      opBinaryArith,
		bytecode.MUL:      opBinaryArith,
		bytecode.MOD:      opBinaryArith,
		bytecode.POW:      opBinaryArith,
		bytecode.DIV:      opBinaryArith,
		bytecode.IDIV:     opBinaryArith,
		bytecode.BAND:     opBinaryArith,
		bytecode.BOR:      opBinaryArith,
		bytecode.BXOR:     opBinaryArith,
		bytecode.SHL:      opBinaryArith,
		bytecode.SHR:      opBinaryArith,
		bytecode.UNM:      opUnaryArith,
		bytecode.BNOT:     opUnaryArith,
		bytecode.NOT:      opNot,
		bytecode.LEN:      opLen,
		bytecode.CONCAT:   opConcat,
		bytecode.JMP:      opJmp,
		bytecode.EQ:       opCompare,
		bytecode.LT:       opCompare,
		bytecode.LE:       opCompare,
		bytecode.TEST:     opTest,
		bytecode.TESTSET:  opTestSet,
		bytecode.CALL:     opCall,
		bytecode.TAILCALL: opTailCall,
		bytecode.RETURN:   opReturn,
		bytecode.FORLOOP:  opForLoop,
		bytecode.FORPREP:  opForPrep,
		bytecode.TFORCALL: opTForCall,
		bytecode.TFORLOOP: opTForLoop,
		bytecode.SETLIST:  opSetList,
		bytecode.CLOSURE:  opClosure,
		bytecode.VARARG:   opVararg,
		bytecode.EXTRAARG: opExtraArg,
	}
}

func argA(i uint32) int { return int(bytecode.GetA(i)) + 1 }
func argB(i uint32) int { return int(bytecode.GetB(i)) }
func argC(i uint32) int { return int(bytecode.GetC(i)) }

// R(A) := R(B)
func opMove(vm *VM, i uint32) error {
	return vm.Copy(argB(i)+1, argA(i))
}

// R(A) := Kst(Bx)
func opLoadK(vm *VM, i uint32) error {
	if err := vm.getConst(bytecode.GetBx(i)); err != nil {
		return err
	}
	return vm.Replace(argA(i))
}

// R(A) := Kst(extra arg)
func opLoadKx(vm *VM, i uint32) error {
	if vm.frame.pc >= len(vm.frame.closure.proto.Code) {
		return lerrors.New(lerrors.IndexErr, "LOADKX without EXTRAARG")
	}
	if err := vm.getConst(bytecode.GetAx(vm.fetch())); err != nil {
		return err
	}
	return vm.Replace(argA(i))
}

// R(A) := (Bool)B; if (C) pc++
func opLoadBool(vm *VM, i uint32) error {
	if err := vm.PushBoolean(argB(i) != 0); err != nil {
		return err
	}
	if argC(i) != 0 {
		vm.addPC(1)
	}
	return vm.Replace(argA(i))
}

// R(A), R(A+1), ..., R(A+B) := nil
func opLoadNil(vm *VM, i uint32) error {
	a, b := argA(i), argB(i)
	for idx := a; idx <= a+b; idx++ {
		if err := vm.frame.set(idx, nil); err != nil {
			return err
		}
	}
	return nil
}

// R(A) := UpValue[B]
func opGetUpval(vm *VM, i uint32) error {
	return vm.Copy(UpvalueIndex(argB(i)+1), argA(i))
}

// UpValue[B] := R(A)
func opSetUpval(vm *VM, i uint32) error {
	return vm.Copy(argA(i), UpvalueIndex(argB(i)+1))
}

// R(A) := UpValue[B][RK(C)]
func opGetTabUp(vm *VM, i uint32) error {
	return getTableInto(vm, argA(i), UpvalueIndex(argB(i)+1), bytecode.GetC(i))
}

// R(A) := R(B)[RK(C)]
func opGetTable(vm *VM, i uint32) error {
	return getTableInto(vm, argA(i), argB(i)+1, bytecode.GetC(i))
}

func getTableInto(vm *VM, a, tblIdx int, rk int64) error {
	if err := vm.getRK(rk); err != nil {
		return err
	}
	if _, err := vm.GetTable(tblIdx); err != nil {
		return err
	}
	return vm.Replace(a)
}

// UpValue[A][RK(B)] := RK(C)
func opSetTabUp(vm *VM, i uint32) error {
	return setTableFrom(vm, UpvalueIndex(argA(i)), bytecode.GetB(i), bytecode.GetC(i))
}

// R(A)[RK(B)] := RK(C)
func opSetTable(vm *VM, i uint32) error {
	return setTableFrom(vm, argA(i), bytecode.GetB(i), bytecode.GetC(i))
}

func setTableFrom(vm *VM, tblIdx int, rkKey, rkVal int64) error {
	if err := vm.getRK(rkKey); err != nil {
		return err
	}
	if err := vm.getRK(rkVal); err != nil {
		return err
	}
	return vm.SetTable(tblIdx)
}

// R(A) := {} (size = B,C)
func opNewTable(vm *VM, i uint32) error {
	nArr := bytecode.Fb2int(bytecode.GetB(i))
	nRec := bytecode.Fb2int(bytecode.GetC(i))
	if err := vm.CreateTable(int(nArr), int(nRec)); err != nil {
		return err
	}
	return vm.Replace(argA(i))
}

// R(A+1) := R(B); R(A) := R(B)[RK(C)]
func opSelf(vm *VM, i uint32) error {
	a, b := argA(i), argB(i)+1
	if err := vm.Copy(b, a+1); err != nil {
		return err
	}
	return getTableInto(vm, a, b, bytecode.GetC(i))
}

// R(A) := RK(B) op RK(C)
func opBinaryArith(vm *VM, i uint32) error {
	op := ArithOp(bytecode.GetOp(i) - bytecode.ADD)
	if err := vm.getRK(bytecode.GetB(i)); err != nil {
		return err
	}
	if err := vm.getRK(bytecode.GetC(i)); err != nil {
		return err
	}
	if err := vm.Arith(op); err != nil {
		return err
	}
	return vm.Replace(argA(i))
}

// R(A) := op R(B)
func opUnaryArith(vm *VM, i uint32) error {
	op := OpUnm
	if bytecode.GetOp(i) == bytecode.BNOT {
		op = OpBNot
	}
	if err := vm.PushValue(argB(i) + 1); err != nil {
		return err
	}
	if err := vm.Arith(op); err != nil {
		return err
	}
	return vm.Replace(argA(i))
}

// R(A) := not R(B)
func opNot(vm *VM, i uint32) error {
	if err := vm.PushBoolean(!vm.ToBoolean(argB(i) + 1)); err != nil {
		return err
	}
	return vm.Replace(argA(i))
}

// R(A) := length of R(B)
func opLen(vm *VM, i uint32) error {
	if err := vm.Len(argB(i) + 1); err != nil {
		return err
	}
	return vm.Replace(argA(i))
}

// R(A) := R(B).. ... ..R(C)
func opConcat(vm *VM, i uint32) error {
	b, c := argB(i)+1, argC(i)+1
	n := c - b + 1
	if err := vm.frame.check(n); err != nil {
		return err
	}
	for idx := b; idx <= c; idx++ {
		if err := vm.PushValue(idx); err != nil {
			return err
		}
	}
	if err := vm.Concat(n); err != nil {
		return err
	}
	return vm.Replace(argA(i))
}

// pc+=sBx; if (A) close all upvalues >= R(A - 1)
func opJmp(vm *VM, i uint32) error {
	vm.addPC(int(bytecode.GetsBx(i)))
	if a := int(bytecode.GetA(i)); a != 0 {
		vm.closeUpvalues(a)
	}
	return nil
}

// if ((RK(B) op RK(C)) ~= A) then pc++
func opCompare(vm *VM, i uint32) error {
	var op CompareOp
	switch bytecode.GetOp(i) {
	case bytecode.LT:
		op = OpLt
	case bytecode.LE:
		op = OpLe
	default:
		op = OpEq
	}
	if err := vm.getRK(bytecode.GetB(i)); err != nil {
		return err
	}
	if err := vm.getRK(bytecode.GetC(i)); err != nil {
		return err
	}
	res, err := vm.Compare(-2, -1, op)
	if err != nil {
		return err
	}
	if res != (bytecode.GetA(i) != 0) {
		vm.addPC(1)
	}
	return vm.Pop(2)
}

// if not (R(A) <=> C) then pc++
func opTest(vm *VM, i uint32) error {
	if vm.ToBoolean(argA(i)) != (argC(i) != 0) {
		vm.addPC(1)
	}
	return nil
}

// if (R(B) <=> C) then R(A) := R(B) else pc++
func opTestSet(vm *VM, i uint32) error {
	b := argB(i) + 1
	if vm.ToBoolean(b) == (argC(i) != 0) {
		return vm.Copy(b, argA(i))
	}
	vm.addPC(1)
	return nil
}

// R(A), ... ,R(A+C-2) := R(A)(R(A+1), ... ,R(A+B-1))
func opCall(vm *VM, i uint32) error {
	a, c := argA(i), argC(i)
	nArgs, err := pushFuncAndArgs(vm, a, argB(i))
	if err != nil {
		return err
	}
	if err := vm.Call(nArgs, c-1); err != nil {
		return err
	}
	return popResults(vm, a, c)
}

// return R(A)(R(A+1), ... ,R(A+B-1)). The callee runs in a fresh frame and
// its results are left for the RETURN that follows.
func opTailCall(vm *VM, i uint32) error {
	a := argA(i)
	nArgs, err := pushFuncAndArgs(vm, a, argB(i))
	if err != nil {
		return err
	}
	if err := vm.Call(nArgs, MultRet); err != nil {
		return err
	}
	return popResults(vm, a, 0)
}

// return R(A), ... ,R(A+B-2)
func opReturn(vm *VM, i uint32) error {
	a, b := argA(i), argB(i)
	if b == 1 {
		return nil
	} else if b > 1 {
		if err := vm.frame.check(b - 1); err != nil {
			return err
		}
		for idx := a; idx <= a+b-2; idx++ {
			if err := vm.PushValue(idx); err != nil {
				return err
			}
		}
		return nil
	}
	return fixStack(vm, a)
}

// R(A), R(A+1), ..., R(A+B-2) = vararg
func opVararg(vm *VM, i uint32) error {
	a, b := argA(i), argB(i)
	if b == 1 {
		return nil
	}
	if err := vm.loadVararg(b - 1); err != nil {
		return err
	}
	return popResults(vm, a, b)
}

// pushFuncAndArgs pushes the function at a and its arguments. With b == 0 the
// arguments run up to the top left by a previous multiple result instruction.
func pushFuncAndArgs(vm *VM, a, b int) (int, error) {
	if b >= 1 {
		if err := vm.frame.check(b); err != nil {
			return 0, err
		}
		for idx := a; idx < a+b; idx++ {
			if err := vm.PushValue(idx); err != nil {
				return 0, err
			}
		}
		return b - 1, nil
	}
	if err := fixStack(vm, a); err != nil {
		return 0, err
	}
	return vm.GetTop() - vm.registerCount() - 1, nil
}

// fixStack moves registers a up to the marker left by popResults below the
// multiple results that sit above the registers.
func fixStack(vm *VM, a int) error {
	x := int(vm.ToInteger(-1))
	if err := vm.Pop(1); err != nil {
		return err
	}
	if x < a {
		return lerrors.New(lerrors.IndexErr, "invalid multiple results marker %v", x)
	} else if x == a {
		return nil
	}
	if err := vm.frame.check(x - a); err != nil {
		return err
	}
	for idx := a; idx < x; idx++ {
		if err := vm.PushValue(idx); err != nil {
			return err
		}
	}
	return vm.Rotate(vm.registerCount()+1, x-a)
}

// popResults stores c-1 results into registers starting at a. With c == 0 the
// results stay on the stack and a marker with a is pushed for the consumer.
func popResults(vm *VM, a, c int) error {
	if c == 1 {
		return nil
	} else if c > 1 {
		for idx := a + c - 2; idx >= a; idx-- {
			if err := vm.Replace(idx); err != nil {
				return err
			}
		}
		return nil
	}
	if err := vm.frame.check(1); err != nil {
		return err
	}
	return vm.PushInteger(int64(a))
}

// R(A)-=R(A+2); pc+=sBx
func opForPrep(vm *VM, i uint32) error {
	a := argA(i)
	rawInit, rawStep := vm.frame.get(a), vm.frame.get(a+2)
	init, ok := toNumber(rawInit)
	if !ok {
		return lerrors.New(lerrors.TypeErr, "'for' initial value must be a number")
	}
	limit, ok := toNumber(vm.frame.get(a + 1))
	if !ok {
		return lerrors.New(lerrors.TypeErr, "'for' limit must be a number")
	}
	step, ok := toNumber(rawStep)
	if !ok {
		return lerrors.New(lerrors.TypeErr, "'for' step must be a number")
	}
	if fstep, _ := toFloat(step); fstep == 0 {
		return lerrors.New(lerrors.ArithmeticErr, "'for' step is zero")
	}

	var vals [3]Value
	// only integer registers run an integer loop, numeric strings run as floats
	iinit, initIsInt := rawInit.(Integer)
	istep, stepIsInt := rawStep.(Integer)
	if initIsInt && stepIsInt {
		vals = [3]Value{iinit - istep, Integer(forLimit(limit, int64(istep))), istep}
	} else {
		finit, _ := toFloat(init)
		flimit, _ := toFloat(limit)
		fstep, _ := toFloat(step)
		vals = [3]Value{Float(finit - fstep), Float(flimit), Float(fstep)}
	}
	for j, val := range vals {
		if err := vm.frame.set(a+j, val); err != nil {
			return err
		}
	}
	vm.addPC(int(bytecode.GetsBx(i)))
	return nil
}

// forLimit converts a loop limit to an integer, flooring for ascending loops
// and ceiling for descending ones, clipped to the integer range.
func forLimit(limit Value, step int64) int64 {
	switch lim := limit.(type) {
	case Integer:
		return int64(lim)
	case Float:
		f := float64(lim)
		if math.IsNaN(f) {
			if step > 0 {
				return math.MinInt64
			}
			return math.MaxInt64
		}
		if step > 0 {
			f = math.Floor(f)
		} else {
			f = math.Ceil(f)
		}
		if f >= -math.MinInt64 {
			return math.MaxInt64
		} else if f < math.MinInt64 {
			return math.MinInt64
		}
		return int64(f)
	}
	return 0
}

// R(A)+=R(A+2); if R(A) <?= R(A+1) then { pc+=sBx; R(A+3)=R(A) }
func opForLoop(vm *VM, i uint32) error {
	a := argA(i)
	var next Value
	var loop bool
	switch idx := vm.frame.get(a).(type) {
	case Integer:
		step, sok := vm.frame.get(a + 2).(Integer)
		limit, lok := vm.frame.get(a + 1).(Integer)
		if !sok || !lok {
			return lerrors.New(lerrors.TypeErr, "'for' loop state is not an integer loop")
		}
		n := idx + step
		next = n
		loop = (step > 0 && n <= limit) || (step < 0 && n >= limit)
	case Float:
		step, sok := vm.frame.get(a + 2).(Float)
		limit, lok := vm.frame.get(a + 1).(Float)
		if !sok || !lok {
			return lerrors.New(lerrors.TypeErr, "'for' loop state is not a float loop")
		}
		n := idx + step
		next = n
		loop = (step > 0 && n <= limit) || (step < 0 && n >= limit)
	default:
		return lerrors.New(lerrors.TypeErr, "'for' initial value must be a number")
	}
	if !loop {
		return nil
	}
	if err := vm.frame.set(a, next); err != nil {
		return err
	}
	if err := vm.frame.set(a+3, next); err != nil {
		return err
	}
	vm.addPC(int(bytecode.GetsBx(i)))
	return nil
}

// R(A+3), ... ,R(A+2+C) := R(A)(R(A+1), R(A+2))
func opTForCall(vm *VM, i uint32) error {
	a, c := argA(i), argC(i)
	if _, err := pushFuncAndArgs(vm, a, 3); err != nil {
		return err
	}
	if err := vm.Call(2, c); err != nil {
		return err
	}
	return popResults(vm, a+3, c+1)
}

// if R(A+1) ~= nil then { R(A)=R(A+1); pc += sBx }
func opTForLoop(vm *VM, i uint32) error {
	a := argA(i)
	if vm.IsNil(a + 1) {
		return nil
	}
	if err := vm.Copy(a+1, a); err != nil {
		return err
	}
	vm.addPC(int(bytecode.GetsBx(i)))
	return nil
}

// R(A)[(C-1)*FPF+i] := R(A+i), 1 <= i <= B
func opSetList(vm *VM, i uint32) error {
	a, b, c := argA(i), argB(i), argC(i)
	if c > 0 {
		c--
	} else {
		if vm.frame.pc >= len(vm.frame.closure.proto.Code) {
			return lerrors.New(lerrors.IndexErr, "SETLIST without EXTRAARG")
		}
		c = int(bytecode.GetAx(vm.fetch()))
	}

	multiple := b == 0
	if multiple {
		b = int(vm.ToInteger(-1)) - a - 1
		if err := vm.Pop(1); err != nil {
			return err
		}
	}
	if err := vm.frame.check(1); err != nil {
		return err
	}
	idx := int64(c) * conf.FIELDSPERFLUSH
	for j := 1; j <= b; j++ {
		idx++
		if err := vm.PushValue(a + j); err != nil {
			return err
		}
		if err := vm.SetI(a, idx); err != nil {
			return err
		}
	}
	if !multiple {
		return nil
	}
	for j := vm.registerCount() + 1; j <= vm.GetTop(); j++ {
		idx++
		if err := vm.PushValue(j); err != nil {
			return err
		}
		if err := vm.SetI(a, idx); err != nil {
			return err
		}
	}
	return vm.SetTop(vm.registerCount())
}

// R(A) := closure(KPROTO[Bx])
func opClosure(vm *VM, i uint32) error {
	if err := vm.loadProto(int(bytecode.GetBx(i))); err != nil {
		return err
	}
	return vm.Replace(argA(i))
}

func opExtraArg(_ *VM, _ uint32) error {
	return lerrors.New(lerrors.UnsupportedOpcode, "EXTRAARG is only valid after LOADKX or SETLIST")
}
