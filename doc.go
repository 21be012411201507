/* Package main: concatrt, the execution substrate of a concatenative language

Compiled programs are straight-line Go against the runtime in internal/vm. A
program pushes literals onto an operand stack of tagged values, calls
procedures that pop their operands and push their results, spills values into
named variables, and takes references to stack slots and heap cells.

Values are fixed-size tagged cells. Compound values (tuples, structs, arrays
and procedure values) occupy runs of consecutive slots and always move as a
unit. Their structure lives in reference counted deep type descriptors on a
heap, next to reference counted blocks backing variables, constant data,
curried captures and lists.

Variables live in scopes: chained hash tables linked to their enclosing
scope. Every procedure call gets a fresh scope under the global one, closed
when the procedure returns; nested blocks open and close their own.

Runtime errors are fatal. They unwind to Machine.Run, which flushes the debug
output, logs the error, and hands it to the fatal handler; the command exits
with the low byte of its code.

The concatrt command hosts a hand compiled demo program (see program.go) in
the shape the code generator emits:

	concatrt [-config concatrt.toml] [-entry main] [-trace] [-stack-limit N] [-snapshot file] [-timeout d]

Configuration comes from concatrt.toml, see internal/config; flags override
it.

*/
package main
