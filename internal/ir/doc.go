// Package ir provides the interface-specification graph consumed by bindgen.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This ensures IR remains the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Arena storage: every entity lives in a slice on Spec and is referenced
//     by a typed integer index (ClassID, EnumID, ...), never by pointer
//   - Argument categories are a closed enumeration; per-category behaviour
//     is table driven (see category.go)
//   - Generation reads the Spec; only the compiler's resolve pass writes the
//     computed fields (MRO, visible sets, virtual handlers)
//   - All JSON tags use snake_case
package ir
