// Package install provisions pandoc from its GitHub releases.
//
// [New] resolves the platform of the running machine, queries the release feed
// once and computes where the archive of every platform comes from and where
// its executable ends up once unpacked. [Installer.Install] then clears the
// installation directory, downloads the archive retrying transient network
// failures, unpacks it and marks the executable.
//
// Download failures fall in three groups: saved, failed for a transient reason
// worth retrying (timeouts, refused connections, dns failures, 5xx answers,
// stalled transfers) and failed for good. Only the transient ones are retried.
package install
