package runtime

// TypeName is the name of a type tag.
func (vm *VM) TypeName(tp Type) string { return tp.String() }

// Type returns the type of the value at idx, TypeNone for an invalid index.
func (vm *VM) Type(idx int) Type {
	if vm.frame.isValid(idx) {
		return typeOf(vm.frame.get(idx))
	}
	return TypeNone
}

// IsNone reports an invalid index.
func (vm *VM) IsNone(idx int) bool { return vm.Type(idx) == TypeNone }

// IsNil reports a nil value.
func (vm *VM) IsNil(idx int) bool { return vm.Type(idx) == TypeNil }

// IsNoneOrNil reports an invalid index or a nil value.
func (vm *VM) IsNoneOrNil(idx int) bool { return vm.Type(idx) <= TypeNil }

// IsBoolean reports a boolean value.
func (vm *VM) IsBoolean(idx int) bool { return vm.Type(idx) == TypeBoolean }

// IsTable reports a table value.
func (vm *VM) IsTable(idx int) bool { return vm.Type(idx) == TypeTable }

// IsFunction reports a function value.
func (vm *VM) IsFunction(idx int) bool { return vm.Type(idx) == TypeFunction }

// IsString reports a string or a number, which is convertible to a string.
func (vm *VM) IsString(idx int) bool {
	t := vm.Type(idx)
	return t == TypeString || t == TypeNumber
}

// IsNumber reports a value convertible to a number.
func (vm *VM) IsNumber(idx int) bool {
	_, ok := vm.ToNumberX(idx)
	return ok
}

// IsInteger reports an integer value.
func (vm *VM) IsInteger(idx int) bool {
	_, ok := vm.frame.get(idx).(Integer)
	return ok
}

// IsGoFunction reports a function implemented by the host.
func (vm *VM) IsGoFunction(idx int) bool {
	c, ok := vm.frame.get(idx).(*Closure)
	return ok && c.goFn != nil
}

// ToBoolean converts the value at idx, only nil and false are false.
func (vm *VM) ToBoolean(idx int) bool { return toBoolean(vm.frame.get(idx)) }

// ToNumber converts the value at idx to a float or returns 0.
func (vm *VM) ToNumber(idx int) float64 {
	n, _ := vm.ToNumberX(idx)
	return n
}

// ToNumberX converts the value at idx to a float.
func (vm *VM) ToNumberX(idx int) (float64, bool) { return toFloat(vm.frame.get(idx)) }

// ToInteger converts the value at idx to an integer or returns 0.
func (vm *VM) ToInteger(idx int) int64 {
	i, _ := vm.ToIntegerX(idx)
	return i
}

// ToIntegerX converts the value at idx to an integer.
func (vm *VM) ToIntegerX(idx int) (int64, bool) { return toInteger(vm.frame.get(idx)) }

// ToString converts the value at idx to a string or returns "".
func (vm *VM) ToString(idx int) string {
	s, _ := vm.ToStringX(idx)
	return s
}

// ToStringX converts a string or number at idx to a string. A number is replaced
// in its slot by the converted string.
func (vm *VM) ToStringX(idx int) (string, bool) {
	val := vm.frame.get(idx)
	str, ok := tostring(val)
	if !ok {
		return "", false
	}
	if _, isStr := val.(String); !isStr {
		_ = vm.frame.set(idx, str)
	}
	return string(str), true
}

// ToGoFunction returns the host function at idx or nil.
func (vm *VM) ToGoFunction(idx int) GoFunction {
	if c, ok := vm.frame.get(idx).(*Closure); ok {
		return c.goFn
	}
	return nil
}

// ToValue returns the raw value at idx.
func (vm *VM) ToValue(idx int) Value { return vm.frame.get(idx) }
