package corpus

import (
	"strings"
)

// Table and column names of the source corpus. The corpus is produced
// upstream; these names are part of its contract and stay in Portuguese.
const (
	SpeechTable = "Discursos"
	SampleTable = "DiscursosAmostra"

	ColSpeechID = "CodigoPronunciamento"
	ColParty    = "SiglaPartidoParlamentarNaData"
	ColSpeaker  = "CodigoParlamentar"
	ColDate     = "DataPronunciamento"
	ColText     = "TextoIntegral"
)

// NoPartyStratum is the sentinel stratum for speeches with a NULL party
// code. Records without a party stay in the sample frame instead of
// being dropped.
const NoPartyStratum = "SEM_PARTIDO"

// EligiblePair identifies one speech eligible for sampling. SpeakerID is
// zero when the corpus has no speaker reference for the row.
type EligiblePair struct {
	SpeechID  int64
	SpeakerID int64
}

// SampledSpeech is one row of the derived sample table, with the speaker
// display name already joined in.
type SampledSpeech struct {
	SpeechID    int64
	SpeakerName string
	Party       string
	Date        string
	Text        string
}

// YearText is one corpus row bucketed by speech year, used by the cost
// estimation path.
type YearText struct {
	SpeechID int64
	Year     int
	Text     string
}

// WordCount counts whitespace-separated words. This is the in-memory
// counter used for metadata and density; the eligibility filter uses the
// SQL space-count approximation instead (see eligibleByPartySQL), and the
// two deliberately stay separate so each path reproduces its historical
// sample composition.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
