// Package acl holds the anti-corruption layer between the installment engine
// and its external collaborators: the invoicing context and the metal price
// feed. The engine only ever sees these interfaces; it never reaches into
// invoice rows or price sources directly.
package acl
