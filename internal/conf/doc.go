// Package conf loads the settings of the confpatch tool itself.
//
// The configuration is merged from three layers, later ones winning:
//
//  1. the defaults compiled into the binary
//  2. $XDG_CONFIG_HOME/confpatch/config.toml
//  3. *.toml files in $XDG_CONFIG_HOME/confpatch/config.toml.d/, in lexical order
//
// A key missing from a layer keeps the value of the layers below it.
package conf
