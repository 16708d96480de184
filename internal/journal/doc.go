// Package journal persists run outcomes for cronkitd.
//
// It is host-layer observability only: task definitions never touch disk,
// and the scheduler core runs fine without it.
package journal
