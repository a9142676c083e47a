// Package phone runs the telephone: it waits for the handset, collects a
// dialed digit, and connects the caller to the character assigned to it.
//
// A Controller owns the line and moves through Idle, AwaitingDigit,
// Routing, InCall and Error. Each connected call is handled by a Session,
// which loops listen, transcribe, chat and speak until the handset goes
// back on the hook. Every call starts with an empty Transcript that is
// discarded when the call ends.
//
// Everything runs on the controller's goroutine. Hang-up is checked once per
// turn; operator abort cancels the call's context.
package phone
