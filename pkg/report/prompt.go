package report

import "strings"

type Language string

const (
	LanguageEnglish Language = "en"
	LanguageBengali Language = "bn"
)

// NormalizeLanguage maps unknown or unspecified values to English rather
// than failing.
func NormalizeLanguage(value string) Language {
	if strings.TrimSpace(strings.ToLower(value)) == string(LanguageBengali) {
		return LanguageBengali
	}
	return LanguageEnglish
}

// BuildPrompts returns the system and user prompts for the interpretation
// provider. The user prompt demands a raw JSON object with exactly the
// three fields the normalizer understands.
func BuildPrompts(language Language) (systemPrompt, userPrompt string) {
	if language == LanguageBengali {
		systemPrompt = strings.Join([]string{
			"আপনি একজন মেডিকেল এআই সহকারী, বাংলাভাষী রোগীদের জন্য পরীক্ষার রিপোর্ট বিশ্লেষণ করেন।",
			"রোগীর গোপনীয়তা রক্ষা করুন, অবস্থা পরিষ্কারভাবে ব্যাখ্যা করুন, এবং ক্লিনিক্যালি দরকারি পরামর্শ দিন।",
			"সকল প্রতিক্রিয়া বাংলা ভাষায় দিন এবং চিকিৎসকের সাথে পরামর্শ করার গুরুত্ব উল্লেখ করুন।",
		}, " ")
		userPrompt = strings.Join([]string{
			"সংযুক্ত মেডিকেল রিপোর্টটি বিশ্লেষণ করুন এবং বৈধ JSON প্রত্যুত্তর দিন।",
			"JSON অবজেক্টে তিনটি ফিল্ড থাকবে:",
			`1. "summary": ৩-৪ বাক্যে মূল সারসংক্ষেপ।`,
			`2. "detailed_analysis": প্রতিটি গুরুত্বপূর্ণ মেট্রিক বা পর্যবেক্ষণের ব্যাখ্যা সহ স্ট্রিং অ্যারে।`,
			`3. "next_steps": রোগীর জন্য ক্লিনিক্যালি উপকারী করণীয় বা ফলো-আপ পরামর্শের অ্যারে।`,
			"কোনো অতিরিক্ত টেক্সট, ব্যাখ্যা বা কোডব্লক যুক্ত করবেন না। শুধুমাত্র JSON দিন।",
		}, " ")
		return systemPrompt, userPrompt
	}

	systemPrompt = strings.Join([]string{
		"You are a medical AI assistant that interprets laboratory and diagnostic reports for patients.",
		"Keep explanations clear, empathetic, and clinically grounded with supportive recommendations.",
		"Always remind the patient to consult their licensed healthcare professional before acting.",
	}, " ")
	userPrompt = strings.Join([]string{
		"Analyze the attached medical report and reply with a VALID JSON object only.",
		`Fields required: "summary" (3-4 sentence overview),`,
		`"detailed_analysis" (array of strings explaining notable metrics, trends, or flags),`,
		`"next_steps" (array of actionable follow-ups or precautions for the patient).`,
		"No extra commentary or markdown—return raw JSON that can be parsed directly.",
	}, " ")
	return systemPrompt, userPrompt
}
