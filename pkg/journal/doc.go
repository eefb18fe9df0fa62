// Package journal records what a replyserver run injected, one structured
// event per listening socket, connection and shutdown.
//
// Events go to any number of Emitter backends: a JSON-lines file
// (FileEmitter) and the local syslog daemon as RFC 5424 messages
// (SyslogEmitter). Emit failures are reported to the caller and must never
// stop a run.
//
// # Usage
//
//	fe, err := journal.NewFileEmitter("injections.jsonl")
//	if err != nil {
//	    return err
//	}
//	defer fe.Close()
//	em := journal.Multi(fe)
//	em.Emit(journal.NewCaseInjected(connID, peer, 3, "testcases/3", 512, "GET / HTTP/1.1"))
package journal
