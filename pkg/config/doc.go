// Package config defines Regula's configuration model and loading.
//
// Configuration is read from a YAML file, defaults are applied, then
// environment variables of the form REGULA_SECTION_FIELD override
// individual values, and the result is validated. Environment overrides
// always take precedence over file values.
package config
