// Extensions to the go-check unittest framework.
package gocheck2

import (
	"reflect"

	. "gopkg.in/check.v1"
)

// -----------------------------------------------------------------------
// IsTrue / IsFalse checker.

type isBoolValueChecker struct {
	*CheckerInfo
	expected bool
}

func (checker *isBoolValueChecker) Check(
	params []interface{},
	names []string) (
	result bool,
	error string) {

	obtained, ok := params[0].(bool)
	if !ok {
		return false, "Argument to " + checker.Name + " must be bool"
	}

	return obtained == checker.expected, ""
}

// The IsTrue checker verifies that the obtained value is true.
//
// For example:
//
//     c.Assert(value, IsTrue)
//
var IsTrue Checker = &isBoolValueChecker{
	&CheckerInfo{Name: "IsTrue", Params: []string{"obtained"}},
	true,
}

// The IsFalse checker verifies that the obtained value is false.
//
// For example:
//
//     c.Assert(value, IsFalse)
//
var IsFalse Checker = &isBoolValueChecker{
	&CheckerInfo{Name: "IsFalse", Params: []string{"obtained"}},
	false,
}

// -----------------------------------------------------------------------
// HasKey checker.

type hasKeyChecker struct {
	*CheckerInfo
}

func (checker *hasKeyChecker) Check(
	params []interface{},
	names []string) (
	result bool,
	error string) {

	m := reflect.ValueOf(params[0])
	if m.Kind() != reflect.Map {
		return false, "First argument to HasKey must be a map"
	}

	key := reflect.ValueOf(params[1])
	if !key.IsValid() || !key.Type().AssignableTo(m.Type().Key()) {
		return false, "Second argument must be assignable to the map key type"
	}

	return m.MapIndex(key).IsValid(), ""
}

// The HasKey checker verifies that the obtained map contains the given key.
//
// For example:
//
//     c.Assert(map[string]int{"foo": 1}, HasKey, "foo")
//
var HasKey Checker = &hasKeyChecker{
	&CheckerInfo{Name: "HasKey", Params: []string{"obtained", "key"}},
}

// -----------------------------------------------------------------------
// SameInstance checker.

type sameInstanceChecker struct {
	*CheckerInfo
}

func (checker *sameInstanceChecker) Check(
	params []interface{},
	names []string) (
	result bool,
	error string) {

	obtained := reflect.ValueOf(params[0])
	expected := reflect.ValueOf(params[1])
	if obtained.Kind() != reflect.Ptr || expected.Kind() != reflect.Ptr {
		return false, "Arguments to SameInstance must be pointers"
	}

	return obtained.Pointer() == expected.Pointer(), ""
}

// The SameInstance checker verifies that two pointers (or interfaces
// holding pointers) refer to the same object.  Use Not(SameInstance) to
// assert distinct objects.
//
// For example:
//
//     c.Assert(conn1, Not(SameInstance), conn2)
//
var SameInstance Checker = &sameInstanceChecker{
	&CheckerInfo{Name: "SameInstance", Params: []string{"obtained", "expected"}},
}
