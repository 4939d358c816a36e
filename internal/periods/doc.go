// Package periods normalizes reporting period tokens and discovers which
// periods already have a complete filing on disk.
//
// Every raw token goes through Parse, which maps month and quarter spellings
// onto one canonical YYYYMM identifier (a quarter becomes its closing month).
// The Resolver walks an entity's storage location and only reports a period
// when a validated artifact exists for it and the period has closed; partial
// downloads, placeholders, and the still-open current month never count.
//
// Resolvers hold configuration only, so concurrent Discover calls are safe and
// always reflect what is on disk at call time.
package periods
