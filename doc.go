/*
Package shdlc is the public facade of the SHDL toolchain: it wires the
front end (lexer, parser, module resolver), the five-phase flattener,
the semantic analyzer, and the bit-packed C code generator into a
single Compile call that turns an SHDL source file into the C source
of a native simulator.

Source parsing through code generation runs entirely in this process;
invoking the host C toolchain and dlopen-ing the result is the job of
the driver package, kept separate because it is the one step that
leaves the Go process and touches the filesystem and a subprocess.
*/
package shdlc
