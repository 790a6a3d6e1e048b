package intent

// Keyword and pattern tables driving classification. The tables are data;
// Router.Classify is the only control flow reading them.

// stageTable maps a canonical case stage to the phrases that detect it.
var stageTable = map[string][]string{
	"fir":            {"fir", "first information report", "zero fir", "register a complaint", "file a complaint", "police station"},
	"investigation":  {"investigation", "investigate", "police inquiry", "case diary", "statement under"},
	"arrest":         {"arrest", "arrested", "custody", "detention", "remand"},
	"bail":           {"bail", "anticipatory bail", "surety", "bond"},
	"medical":        {"medical examination", "medico-legal", "mlc", "forensic examination"},
	"chargesheet":    {"chargesheet", "charge sheet", "final report", "challan"},
	"trial":          {"trial", "court hearing", "testimony", "cross-examination", "in-camera"},
	"appeal":         {"appeal", "revision", "higher court", "sessions court"},
	"victim_support": {"victim support", "protection order", "shelter", "counselling", "support person"},
}

// stageTopicExpansions are appended to the query before keyword search to
// improve recall for the detected stages.
var stageTopicExpansions = map[string][]string{
	"fir":            {"fir", "first information report", "police"},
	"investigation":  {"investigation", "police"},
	"arrest":         {"arrest", "custody"},
	"bail":           {"bail"},
	"medical":        {"medical examination", "forensic"},
	"chargesheet":    {"chargesheet", "final report"},
	"trial":          {"trial", "court"},
	"appeal":         {"appeal"},
	"victim_support": {"victim", "protection"},
}

// proceduralMarkers flag a how-do-I / what-happens-next query even when no
// specific stage keyword is present.
var proceduralMarkers = []string{
	"how do i", "how to", "what should i do", "what happens", "procedure",
	"process", "steps", "where do i", "where to", "whom to", "can i file",
	"how can i", "what is the next step",
}

// sexualOffenceMarkers route a query to the sexual-offence procedural tier.
var sexualOffenceMarkers = []string{
	"rape", "sexual assault", "sexual harassment", "molestation",
	"outraging modesty", "stalking", "voyeurism", "pocso",
	"sexual offence", "sexual offense", "eve teasing", "gang rape",
}

// childVictimMarkers refine the case type when the victim is a minor.
var childVictimMarkers = []string{
	"child", "minor", "juvenile", "below 18", "under 18", "pocso",
}

// evidenceMarkers gate the evidentiary-requirements tier.
var evidenceMarkers = []string{
	"evidence", "proof", "forensic", "dna", "witness", "testimony",
	"medical report", "documentation", "prove", "burden of proof",
}

// compensationMarkers gate the victim-compensation tier.
var compensationMarkers = []string{
	"compensation", "damages", "monetary relief", "relief fund",
	"victim compensation", "interim compensation", "ex gratia",
	"reimbursement",
}

// docAliases maps lowercase document-name mentions to canonical doc ids.
// Longer aliases are matched first so "bharatiya nyaya sanhita" wins over a
// bare code mention.
var docAliases = []struct {
	Alias string
	DocID string
}{
	{"bharatiya nyaya sanhita", "BNS"},
	{"bharatiya nagarik suraksha sanhita", "BNSS"},
	{"bharatiya sakshya adhiniyam", "BSA"},
	{"protection of children from sexual offences", "POCSO"},
	{"indian penal code", "IPC"},
	{"code of criminal procedure", "CrPC"},
	{"pocso act", "POCSO"},
	{"pocso", "POCSO"},
	{"bnss", "BNSS"},
	{"bns", "BNS"},
	{"bsa", "BSA"},
	{"ipc", "IPC"},
	{"crpc", "CrPC"},
}
