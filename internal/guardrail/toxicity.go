package guardrail

import "regexp"

// ToxicityRefusal is the default safe response for toxicity blocks that have
// no threat-specific message.
const ToxicityRefusal = "I cannot help with that. I'm here to support safe and legal farming. Please ask me about crops, weather, or government schemes."

// SelfHarmResponse routes self-harm ideation to a crisis helpline instead of
// a generic refusal.
const SelfHarmResponse = "Please reach out for support right now. The Kisan Call Centre is at 1800-180-1551 and the KIRAN mental health helpline is available 24x7 at 1800-599-0019. You are not alone, and help is free and confidential."

// BannedPesticideResponse offers a legal substitute instead of refusing flat.
const BannedPesticideResponse = "That substance is banned for agricultural use in India because it is dangerous to people and the environment. I can suggest safer, approved alternatives for your pest problem — tell me the crop and the pest you are seeing."

// threatResponses maps a toxicity threat type to its custom safe response.
// Types absent from the map fall back to ToxicityRefusal.
var threatResponses = map[ThreatType]string{
	ThreatSelfHarm:        SelfHarmResponse,
	ThreatBannedPesticide: BannedPesticideResponse,
}

// Pre-compiled toxicity patterns — ordered, first match wins. Self-harm sits
// before harm-to-people so "harm myself" never gets the wrong response.
var toxicityPatterns = []struct {
	re       *regexp.Regexp
	threat   ThreatType
	severity Severity
	detail   string
}{
	{regexp.MustCompile(`(?i)\b(kill|hurt|harm|cut)\s+(myself|my\s*self)|\bend\s+my\s+life|\bsuicide\b|\bcommit\s+suicide`), ThreatSelfHarm, SeverityCritical, "self-harm ideation"},
	{regexp.MustCompile(`(?i)\b(kill|poison|hurt|harm|attack)\s+(a\s+|my\s+|the\s+)?(person|people|someone|neighbou?r|family|wife|husband|child)`), ThreatHarmToPeople, SeverityCritical, "harm to people"},
	{regexp.MustCompile(`(?i)\b(destroy|burn|poison|ruin|sabotage)\s+(my\s+neighbou?r'?s?|someone'?s|their|his|her)\s+(crop|field|farm|harvest|well|borewell|cattle|livestock)`), ThreatCropSabotage, SeverityCritical, "sabotage of others' property"},
	{regexp.MustCompile(`(?i)\b(monocrotophos|endosulfan|phorate|carbofuran|methyl\s+parathion|phosphamidon|triazophos)\b`), ThreatBannedPesticide, SeverityHigh, "banned pesticide named"},
	{regexp.MustCompile(`(?i)\b(dump|release|drain)\s+(pesticide|chemical|effluent|waste)s?\s+(in|into)\s+(the\s+)?(river|canal|lake|pond|groundwater|stream)`), ThreatEnvironmentalHarm, SeverityHigh, "environmental contamination"},
	{regexp.MustCompile(`(?i)\b(poison|contaminate)\s+(the\s+)?(water\s+supply|drinking\s+water|village\s+well)`), ThreatEnvironmentalHarm, SeverityCritical, "water supply contamination"},
	{regexp.MustCompile(`(?i)\b(those|these)\s+(people|castes?|communities)\s+(deserve|should\s+(die|suffer|be\s+removed))`), ThreatHateSpeech, SeverityCritical, "hate speech in context"},
}

// detectToxicity returns the first matching toxicity pattern plus the safe
// response to serve for it.
func detectToxicity(text string) (ThreatType, Severity, string, string, bool) {
	for _, p := range toxicityPatterns {
		if p.re.MatchString(text) {
			resp, ok := threatResponses[p.threat]
			if !ok {
				resp = ToxicityRefusal
			}
			return p.threat, p.severity, p.detail, resp, true
		}
	}
	return "", 0, "", "", false
}
