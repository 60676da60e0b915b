// Package domain defines core data models and the shared error taxonomy.
// It contains plain types (wire/state) and sentinel errors only.
package domain
