// Package core defines the shared data model for the persona simulation
// pipeline: raw interaction histories, synthesized user profiles, the
// neighbor graph, and dialogue transcripts.
//
// Everything here is plain data with documented defaults. Profiles loaded
// from disk pass through Normalize so that every field is present (empty
// slice or string) rather than absent, eliminating missing-key surprises
// downstream.
//
// Pipeline ownership:
//   - UserHistory is produced by the offline loader and is read-only input
//     to sampling and the social graph.
//   - UserProfile is produced once by the profile builder; RelatedUsers is
//     merged in from the neighbor graph; the struct is immutable during a
//     dialogue session.
//   - DialogueRecord is the flat per-session output artifact.
package core
