package sdk

// Line protocol commands. Each request is one line; each reply is
// "OK <json>", "OK", "PONG" or "ERR <code> <message>".
const (
	CmdPing      = "PING"
	CmdQuit      = "QUIT"
	CmdWhoAmI    = "WHOAMI"    // WHOAMI <actor>
	CmdCreate    = "CREATE"    // CREATE <actor> <json NewBugReport>
	CmdStatus    = "STATUS"    // STATUS <actor> <id> <status>
	CmdAssign    = "ASSIGN"    // ASSIGN <actor> <id>
	CmdGet       = "GET"       // GET <id>
	CmdList      = "LIST"      // LIST [json BugFilter]
	CmdAudit     = "AUDIT"     // AUDIT <id>
	CmdAnalytics = "ANALYTICS" // ANALYTICS <actor>
	CmdSummary   = "SUMMARY"
)
