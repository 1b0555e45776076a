// Package models defines the core domain models for splitledger.
//
// # Models
//
//   - Expense: one shared cost event (who paid, how much, who shares it)
//   - ArchivedExpense: a deleted expense kept for history
//   - User: an account that can sign in and is linked to a roster member
//
// Members are not a model of their own. They are display names drawn from a
// closed roster supplied at startup (see calculator.Roster), and every
// expense refers to them by name.
//
// # Design Principles
//
//  1. Expenses are immutable once stored. Deleting one moves it to the
//     archive, it is never edited in place.
//  2. Balances and settlements are derived on demand and never stored.
//  3. Use ID strings instead of pointers for relationships.
package models
