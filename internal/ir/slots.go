package ir

import "fmt"

// Slot kinds. NoSlot marks an ordinary named method.
const (
	NoSlot SlotKind = iota
	SlotStr
	SlotInt
	SlotFloat
	SlotLen
	SlotContains
	SlotAdd
	SlotSub
	SlotMul
	SlotMod
	SlotFloorDiv
	SlotTrueDiv
	SlotAnd
	SlotOr
	SlotXor
	SlotLShift
	SlotRShift
	SlotMatMul
	SlotIAdd
	SlotISub
	SlotIMul
	SlotIMod
	SlotIFloorDiv
	SlotITrueDiv
	SlotIAnd
	SlotIOr
	SlotIXor
	SlotILShift
	SlotIRShift
	SlotIMatMul
	SlotInvert
	SlotCall
	SlotGetItem
	SlotSetItem
	SlotDelItem
	SlotLt
	SlotLe
	SlotEq
	SlotNe
	SlotGt
	SlotGe
	SlotBool
	SlotNeg
	SlotPos
	SlotAbs
	SlotRepr
	SlotHash
	SlotIndex
	SlotIter
	SlotNext
	SlotSetAttr
	SlotDelAttr
	SlotAwait
	SlotAIter
	SlotANext

	numSlots
)

// SlotGroup classifies slots by how the emitted function behaves when no
// overload matches.
type SlotGroup int

const (
	SlotGroupNone SlotGroup = iota
	SlotGroupNumber
	SlotGroupInplace
	SlotGroupCompare
	SlotGroupOther
)

// SlotReturn is the native return shape of a slot function.
type SlotReturn int

const (
	SlotReturnsObject SlotReturn = iota
	SlotReturnsInt              // 0 ok, -1 error
	SlotReturnsBool             // truth value, -1 error
	SlotReturnsSize
	SlotReturnsHash
)

type slotInfo struct {
	name   string
	dunder string
	group  SlotGroup
	ret    SlotReturn
	nargs  int // host arguments excluding self
}

var slots = [numSlots]slotInfo{
	NoSlot:        {"", "", SlotGroupNone, SlotReturnsObject, -1},
	SlotStr:       {"str", "__str__", SlotGroupOther, SlotReturnsObject, 0},
	SlotInt:       {"int", "__int__", SlotGroupOther, SlotReturnsObject, 0},
	SlotFloat:     {"float", "__float__", SlotGroupOther, SlotReturnsObject, 0},
	SlotLen:       {"len", "__len__", SlotGroupOther, SlotReturnsSize, 0},
	SlotContains:  {"contains", "__contains__", SlotGroupOther, SlotReturnsBool, 1},
	SlotAdd:       {"add", "__add__", SlotGroupNumber, SlotReturnsObject, 1},
	SlotSub:       {"sub", "__sub__", SlotGroupNumber, SlotReturnsObject, 1},
	SlotMul:       {"mul", "__mul__", SlotGroupNumber, SlotReturnsObject, 1},
	SlotMod:       {"mod", "__mod__", SlotGroupNumber, SlotReturnsObject, 1},
	SlotFloorDiv:  {"floordiv", "__floordiv__", SlotGroupNumber, SlotReturnsObject, 1},
	SlotTrueDiv:   {"truediv", "__truediv__", SlotGroupNumber, SlotReturnsObject, 1},
	SlotAnd:       {"and", "__and__", SlotGroupNumber, SlotReturnsObject, 1},
	SlotOr:        {"or", "__or__", SlotGroupNumber, SlotReturnsObject, 1},
	SlotXor:       {"xor", "__xor__", SlotGroupNumber, SlotReturnsObject, 1},
	SlotLShift:    {"lshift", "__lshift__", SlotGroupNumber, SlotReturnsObject, 1},
	SlotRShift:    {"rshift", "__rshift__", SlotGroupNumber, SlotReturnsObject, 1},
	SlotMatMul:    {"matmul", "__matmul__", SlotGroupNumber, SlotReturnsObject, 1},
	SlotIAdd:      {"iadd", "__iadd__", SlotGroupInplace, SlotReturnsObject, 1},
	SlotISub:      {"isub", "__isub__", SlotGroupInplace, SlotReturnsObject, 1},
	SlotIMul:      {"imul", "__imul__", SlotGroupInplace, SlotReturnsObject, 1},
	SlotIMod:      {"imod", "__imod__", SlotGroupInplace, SlotReturnsObject, 1},
	SlotIFloorDiv: {"ifloordiv", "__ifloordiv__", SlotGroupInplace, SlotReturnsObject, 1},
	SlotITrueDiv:  {"itruediv", "__itruediv__", SlotGroupInplace, SlotReturnsObject, 1},
	SlotIAnd:      {"iand", "__iand__", SlotGroupInplace, SlotReturnsObject, 1},
	SlotIOr:       {"ior", "__ior__", SlotGroupInplace, SlotReturnsObject, 1},
	SlotIXor:      {"ixor", "__ixor__", SlotGroupInplace, SlotReturnsObject, 1},
	SlotILShift:   {"ilshift", "__ilshift__", SlotGroupInplace, SlotReturnsObject, 1},
	SlotIRShift:   {"irshift", "__irshift__", SlotGroupInplace, SlotReturnsObject, 1},
	SlotIMatMul:   {"imatmul", "__imatmul__", SlotGroupInplace, SlotReturnsObject, 1},
	SlotInvert:    {"invert", "__invert__", SlotGroupOther, SlotReturnsObject, 0},
	SlotCall:      {"call", "__call__", SlotGroupOther, SlotReturnsObject, -1},
	SlotGetItem:   {"getitem", "__getitem__", SlotGroupOther, SlotReturnsObject, 1},
	SlotSetItem:   {"setitem", "__setitem__", SlotGroupOther, SlotReturnsInt, 2},
	SlotDelItem:   {"delitem", "__delitem__", SlotGroupOther, SlotReturnsInt, 1},
	SlotLt:        {"lt", "__lt__", SlotGroupCompare, SlotReturnsObject, 1},
	SlotLe:        {"le", "__le__", SlotGroupCompare, SlotReturnsObject, 1},
	SlotEq:        {"eq", "__eq__", SlotGroupCompare, SlotReturnsObject, 1},
	SlotNe:        {"ne", "__ne__", SlotGroupCompare, SlotReturnsObject, 1},
	SlotGt:        {"gt", "__gt__", SlotGroupCompare, SlotReturnsObject, 1},
	SlotGe:        {"ge", "__ge__", SlotGroupCompare, SlotReturnsObject, 1},
	SlotBool:      {"bool", "__bool__", SlotGroupOther, SlotReturnsBool, 0},
	SlotNeg:       {"neg", "__neg__", SlotGroupOther, SlotReturnsObject, 0},
	SlotPos:       {"pos", "__pos__", SlotGroupOther, SlotReturnsObject, 0},
	SlotAbs:       {"abs", "__abs__", SlotGroupOther, SlotReturnsObject, 0},
	SlotRepr:      {"repr", "__repr__", SlotGroupOther, SlotReturnsObject, 0},
	SlotHash:      {"hash", "__hash__", SlotGroupOther, SlotReturnsHash, 0},
	SlotIndex:     {"index", "__index__", SlotGroupOther, SlotReturnsObject, 0},
	SlotIter:      {"iter", "__iter__", SlotGroupOther, SlotReturnsObject, 0},
	SlotNext:      {"next", "__next__", SlotGroupOther, SlotReturnsObject, 0},
	SlotSetAttr:   {"setattr", "__setattr__", SlotGroupOther, SlotReturnsInt, 2},
	SlotDelAttr:   {"delattr", "__delattr__", SlotGroupOther, SlotReturnsInt, 1},
	SlotAwait:     {"await", "__await__", SlotGroupOther, SlotReturnsObject, 0},
	SlotAIter:     {"aiter", "__aiter__", SlotGroupOther, SlotReturnsObject, 0},
	SlotANext:     {"anext", "__anext__", SlotGroupOther, SlotReturnsObject, 0},
}

var slotByDunder = func() map[string]SlotKind {
	m := make(map[string]SlotKind, numSlots)
	for s := SlotKind(1); s < numSlots; s++ {
		m[slots[s].dunder] = s
	}
	return m
}()

// SlotForName maps a host special-method name ("__len__") to its slot.
// Ordinary names return NoSlot.
func SlotForName(name string) SlotKind {
	return slotByDunder[name]
}

// NumSlots is the number of defined slot kinds including NoSlot.
func NumSlots() int { return int(numSlots) }

func (s SlotKind) String() string {
	if s < 0 || s >= numSlots {
		return fmt.Sprintf("slot(%d)", int(s))
	}
	if s == NoSlot {
		return "none"
	}
	return slots[s].name
}

// Dunder returns the host special-method name.
func (s SlotKind) Dunder() string { return slots[s].dunder }

// Group returns the slot's failure group.
func (s SlotKind) Group() SlotGroup { return slots[s].group }

// Returns returns the native return shape of the slot function.
func (s SlotKind) Returns() SlotReturn { return slots[s].ret }

// HostArgs is the number of host arguments besides self, or -1 for
// variadic.
func (s SlotKind) HostArgs() int { return slots[s].nargs }

// IsNumber reports whether the slot is a binary or in-place number slot.
func (s SlotKind) IsNumber() bool {
	g := slots[s].group
	return g == SlotGroupNumber || g == SlotGroupInplace
}

// ReturnsNotImplemented reports whether a failed match yields the host's
// NotImplemented singleton rather than an error.
func (s SlotKind) ReturnsNotImplemented() bool {
	switch slots[s].group {
	case SlotGroupNumber, SlotGroupInplace, SlotGroupCompare:
		return true
	}
	return false
}
