// Package forking decides which repositories referencing an image can be
// forked and ensures that exactly 1 fork per parent repository exists.
//
// Code search results often reference the same repository multiple times,
// because multiple files match or GitHub returns duplicate hits. The
// Orchestrator records per run which parent repositories were already
// forked, denied or failed, so a parent is only validated and forked once.
// Records is the run-scoped state, it is safe for concurrent use and the
// check-then-fork sequence is serialized per parent repository.
package forking
