package domain

// KnownSourceIDs are the ticketing-bot identities that must always remain
// registered as signal sources. The hourly self-heal task and the config
// load path both merge these back in if an operator or a bad write removed
// them.
var KnownSourceIDs = []int64{1275351977286570056, 1335639507411664896}
