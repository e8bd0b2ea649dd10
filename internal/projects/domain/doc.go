// Package domain implements the project progress state model: the step
// catalog, step value payloads, and the derivation engine that answers what
// phase a project is in, how far along it is, and what to do next.
//
// All state lives in normalized step instances; the package computes derived
// views over them and never talks to storage directly.
package domain
