// Package compiler turns Compiscript source into MIPS assembly.
//
// The pipeline is linear: parse builds the tree, check validates it
// and reports Spanish diagnostics, gen lowers it to three-address
// code, back allocates registers and emits assembly. Each stage is a
// separate package usable on its own; this package just wires them.
package compiler
