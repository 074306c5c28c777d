package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func interpret(t *testing.T, source string) string {
	t.Helper()

	interner := NewInterner()
	fn, err := Compile(source, interner)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	machine := New(interner)
	var out bytes.Buffer
	machine.SetOutput(&out)
	if err := machine.Run(fn); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	return out.String()
}

func interpretError(t *testing.T, source string) *RuntimeError {
	t.Helper()

	interner := NewInterner()
	fn, err := Compile(source, interner)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	machine := New(interner)
	machine.SetOutput(&bytes.Buffer{})
	err = machine.Run(fn)
	if err == nil {
		t.Fatalf("expected a runtime error, got none")
	}

	var rerr *RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("error is not *RuntimeError: %T (%v)", err, err)
	}
	return rerr
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"print 1 + 2;", "3\n"},
		{"print 5 - 3;", "2\n"},
		{"print 2 * 3 + 4;", "10\n"},
		{"print 2 + 3 * 4;", "14\n"},
		{"print (2 + 3) * 4;", "20\n"},
		{"print 1 / 2;", "0.5\n"},
		{"print -4;", "-4\n"},
		{"print --4;", "4\n"},
		{"print 1.5 + 2.25;", "3.75\n"},
	}

	for _, tt := range tests {
		if got := interpret(t, tt.source); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.source, got, tt.want)
		}
	}
}

func TestComparisonAndEquality(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"print 1 < 2;", "true\n"},
		{"print 2 <= 2;", "true\n"},
		{"print 3 > 4;", "false\n"},
		{"print 4 >= 5;", "false\n"},
		{"print 1 == 1;", "true\n"},
		{"print 1 != 1;", "false\n"},
		{"print nil == nil;", "true\n"},
		{"print nil == false;", "false\n"},
		{`print "a" == "a";`, "true\n"},
		{`print "a" == "b";`, "false\n"},
		{`print 1 == "1";`, "false\n"},
	}

	for _, tt := range tests {
		if got := interpret(t, tt.source); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.source, got, tt.want)
		}
	}
}

func TestTruthiness(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"print !nil;", "true\n"},
		{"print !false;", "true\n"},
		{"print !true;", "false\n"},
		{"print !0;", "false\n"},
		{`print !"";`, "false\n"},
		{"if (0) print \"zero is truthy\";", "zero is truthy\n"},
	}

	for _, tt := range tests {
		if got := interpret(t, tt.source); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.source, got, tt.want)
		}
	}
}

func TestStringConcatenation(t *testing.T) {
	got := interpret(t, `print "he" + "llo";`)
	if got != "hello\n" {
		t.Errorf("got %q, want %q", got, "hello\n")
	}
}

// Concatenation results must unify with literals of the same content.
func TestConcatenationInterns(t *testing.T) {
	got := interpret(t, `print "he" + "llo" == "hello";`)
	if got != "true\n" {
		t.Errorf("got %q, want %q", got, "true\n")
	}
}

func TestGlobals(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"var a = 1; print a;", "1\n"},
		{"var a; print a;", "nil\n"},
		{"var a = 1; a = 2; print a;", "2\n"},
		{"var a = 1; var a = 2; print a;", "2\n"}, // redefinition wins
		{"var a = 1; print a = 3;", "3\n"},        // assignment is an expression
	}

	for _, tt := range tests {
		if got := interpret(t, tt.source); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.source, got, tt.want)
		}
	}
}

func TestLocalsAndShadowing(t *testing.T) {
	source := `
var a = "global";
{
  var a = "outer";
  {
    var a = "inner";
    print a;
  }
  print a;
}
print a;
`
	want := "inner\nouter\nglobal\n"
	if got := interpret(t, source); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestIfElse(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{`if (true) print "then"; else print "else";`, "then\n"},
		{`if (false) print "then"; else print "else";`, "else\n"},
		{`if (false) print "then"; print "after";`, "after\n"},
	}

	for _, tt := range tests {
		if got := interpret(t, tt.source); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.source, got, tt.want)
		}
	}
}

func TestLogicalOperators(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"print true and 2;", "2\n"},
		{"print false and 2;", "false\n"},
		{"print nil and 2;", "nil\n"},
		{"print 1 or 2;", "1\n"},
		{"print false or 2;", "2\n"},
		{"print nil or nil;", "nil\n"},
	}

	for _, tt := range tests {
		if got := interpret(t, tt.source); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.source, got, tt.want)
		}
	}
}

func TestShortCircuitSkipsSideEffects(t *testing.T) {
	source := `
var called = false;
fun mark() { called = true; return true; }
var r = false and mark();
print called;
r = true or mark();
print called;
`
	want := "false\nfalse\n"
	if got := interpret(t, source); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWhileLoop(t *testing.T) {
	source := `
var i = 0;
while (i < 3) {
  print i;
  i = i + 1;
}
`
	want := "0\n1\n2\n"
	if got := interpret(t, source); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestForLoop(t *testing.T) {
	source := `
for (var i = 0; i < 3; i = i + 1) {
  print i;
}
`
	want := "0\n1\n2\n"
	if got := interpret(t, source); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestForLoopOptionalClauses(t *testing.T) {
	source := `
var i = 0;
for (; i < 2;) {
  print i;
  i = i + 1;
}
`
	want := "0\n1\n"
	if got := interpret(t, source); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFunctionCalls(t *testing.T) {
	source := `
fun add(a, b) {
  return a + b;
}
print add(1, 2);
print add;
`
	want := "3\n<fn add>\n"
	if got := interpret(t, source); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFunctionImplicitReturn(t *testing.T) {
	source := `
fun noisy() { print "side"; }
print noisy();
`
	want := "side\nnil\n"
	if got := interpret(t, source); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRecursion(t *testing.T) {
	source := `
fun fib(n) {
  if (n < 2) return n;
  return fib(n - 1) + fib(n - 2);
}
print fib(10);
`
	want := "55\n"
	if got := interpret(t, source); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCounterClosure(t *testing.T) {
	source := `
fun makeCounter() {
  var count = 0;
  fun increment() {
    count = count + 1;
    return count;
  }
  return increment;
}
var counter = makeCounter();
print counter();
print counter();
var other = makeCounter();
print other();
`
	want := "1\n2\n1\n"
	if got := interpret(t, source); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestClosuresShareCapturedVariable(t *testing.T) {
	source := `
var get;
var set;
fun main() {
  var shared = "initial";
  fun getter() { return shared; }
  fun setter(v) { shared = v; }
  get = getter;
  set = setter;
}
main();
set("updated");
print get();
`
	want := "updated\n"
	if got := interpret(t, source); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// A closure leaving the block that declared its captured variable must
// keep the value it saw, even after the stack slot is reused.
func TestUpvalueClosesOnScopeExit(t *testing.T) {
	source := `
var f;
var g;
{
  var a = "first";
  fun captureA() { print a; }
  f = captureA;
}
{
  var b = "second";
  fun captureB() { print b; }
  g = captureB;
}
f();
g();
`
	want := "first\nsecond\n"
	if got := interpret(t, source); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestUpvalueClosesOnReturn(t *testing.T) {
	source := `
fun outer() {
  var x = "outside";
  fun inner() {
    print x;
  }
  return inner;
}
outer()();
`
	want := "outside\n"
	if got := interpret(t, source); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNestedClosureCapturesTransitively(t *testing.T) {
	source := `
fun outer() {
  var x = "captured";
  fun middle() {
    fun inner() {
      print x;
    }
    return inner;
  }
  return middle;
}
outer()()();
`
	want := "captured\n"
	if got := interpret(t, source); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestAssignThroughUpvalueBeforeClose(t *testing.T) {
	source := `
fun outer() {
  var x = 1;
  fun bump() { x = x + 1; }
  bump();
  bump();
  print x;
}
outer();
`
	want := "3\n"
	if got := interpret(t, source); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

/* Runtime errors */

func TestAddTypeError(t *testing.T) {
	rerr := interpretError(t, `print "a" - 1;`)
	if rerr.Message != "operands must be numbers" {
		t.Errorf("message = %q, want %q", rerr.Message, "operands must be numbers")
	}
	if rerr.Line != 1 {
		t.Errorf("line = %d, want 1", rerr.Line)
	}
}

func TestRuntimeErrorMessages(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{`print "a" + 1;`, "operands must be two numbers or two strings"},
		{`print 1 + "a";`, "operands must be two numbers or two strings"},
		{`print -"a";`, "operand must be a number"},
		{`print nil < 1;`, "operands must be numbers"},
		{`print missing;`, "undefined variable 'missing'"},
		{`missing = 1;`, "undefined variable 'missing'"},
		{`var s = "text"; s();`, "can only call functions"},
		{`fun f(a) {} f(1, 2);`, "expected 1 arguments but got 2"},
		{`fun f(a, b) {} f(1);`, "expected 2 arguments but got 1"},
	}

	for _, tt := range tests {
		rerr := interpretError(t, tt.source)
		if rerr.Message != tt.want {
			t.Errorf("%s: message = %q, want %q", tt.source, rerr.Message, tt.want)
		}
	}
}

func TestRuntimeErrorTrace(t *testing.T) {
	source := `fun a() { b(); }
fun b() { c(); }
fun c() { nil - 1; }
a();`
	rerr := interpretError(t, source)

	if rerr.Line != 3 {
		t.Errorf("line = %d, want 3", rerr.Line)
	}
	wantTrace := []TraceFrame{
		{Function: "c", Line: 3},
		{Function: "b", Line: 2},
		{Function: "a", Line: 1},
		{Function: "script", Line: 4},
	}
	if len(rerr.Trace) != len(wantTrace) {
		t.Fatalf("trace has %d frames, want %d: %v", len(rerr.Trace), len(wantTrace), rerr.Trace)
	}
	for i, want := range wantTrace {
		if rerr.Trace[i] != want {
			t.Errorf("trace[%d] = %v, want %v", i, rerr.Trace[i], want)
		}
	}
}

func TestStackOverflow(t *testing.T) {
	rerr := interpretError(t, `
fun loop() { loop(); }
loop();
`)
	if rerr.Message != "stack overflow" {
		t.Errorf("message = %q, want %q", rerr.Message, "stack overflow")
	}
	if len(rerr.Trace) != MaxFrameCount {
		t.Errorf("trace has %d frames, want %d", len(rerr.Trace), MaxFrameCount)
	}
}

// Output written before the failing instruction must survive the abort.
func TestOutputBeforeRuntimeError(t *testing.T) {
	interner := NewInterner()
	fn, err := Compile(`print "before"; nil - 1;`, interner)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	machine := New(interner)
	var out bytes.Buffer
	machine.SetOutput(&out)
	if err := machine.Run(fn); err == nil {
		t.Fatalf("expected a runtime error")
	}
	if out.String() != "before\n" {
		t.Errorf("output = %q, want %q", out.String(), "before\n")
	}
}

// The VM keeps its globals between runs so a REPL can build on
// earlier lines.
func TestGlobalsPersistAcrossRuns(t *testing.T) {
	interner := NewInterner()
	machine := New(interner)
	var out bytes.Buffer
	machine.SetOutput(&out)

	first, err := Compile(`var x = 41;`, interner)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if err := machine.Run(first); err != nil {
		t.Fatalf("runtime error: %v", err)
	}

	second, err := Compile(`print x + 1;`, interner)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if err := machine.Run(second); err != nil {
		t.Fatalf("runtime error: %v", err)
	}

	if out.String() != "42\n" {
		t.Errorf("output = %q, want %q", out.String(), "42\n")
	}
}

func TestVMRecoversAfterRuntimeError(t *testing.T) {
	interner := NewInterner()
	machine := New(interner)
	var out bytes.Buffer
	machine.SetOutput(&out)

	bad, err := Compile(`nil - 1;`, interner)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if err := machine.Run(bad); err == nil {
		t.Fatalf("expected a runtime error")
	}

	good, err := Compile(`print "still alive";`, interner)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if err := machine.Run(good); err != nil {
		t.Fatalf("runtime error after recovery: %v", err)
	}
	if !strings.Contains(out.String(), "still alive") {
		t.Errorf("output = %q, want it to contain %q", out.String(), "still alive")
	}
}
