// Package confloader loads layered configuration with koanf.
//
// Sources, lowest priority first:
//
//  1. Defaults already present in the target struct
//  2. YAML configuration file
//  3. .env file (copied into the process environment, never overriding
//     variables that are already set)
//  4. Environment variables with the BLOOMBUDDY_ prefix
//  5. Explicit overrides (command-line flags) passed to LoadMap
//
// Environment variable names map onto keys by dropping the prefix,
// lowercasing and turning "__" into a nesting separator, so
// BLOOMBUDDY_STORAGE__DATA_DIR sets storage.data_dir. Aliases map
// unprefixed legacy variables such as JWT_KEY onto a key; they apply only
// when nothing else set that key.
package confloader
