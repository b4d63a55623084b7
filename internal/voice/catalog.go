package voice

// 音色属性到 Edge TTS 音色名的映射
// 免费接口的情绪支持有限，只有英语配置了几种情绪音色
var voiceMap = map[profileKey]Selector{
	{"male", "en", "neutral"}:    "en-US-GuyNeural",
	{"male", "en", "happy"}:      "en-US-ChristopherNeural",
	{"male", "en", "excited"}:    "en-US-EricNeural",
	{"female", "en", "neutral"}:  "en-US-AriaNeural",
	{"female", "en", "happy"}:    "en-US-JennyNeural",
	{"female", "en", "calm"}:     "en-US-MichelleNeural",
	{"male", "es", "neutral"}:    "es-ES-AlvaroNeural",
	{"female", "es", "neutral"}:  "es-ES-ElviraNeural",
	{"male", "fr", "neutral"}:    "fr-FR-HenriNeural",
	{"female", "fr", "neutral"}:  "fr-FR-DeniseNeural",
	{"male", "de", "neutral"}:    "de-DE-ConradNeural",
	{"female", "de", "neutral"}:  "de-DE-KatjaNeural",
	{"male", "pt", "neutral"}:    "pt-BR-AntonioNeural",
	{"female", "pt", "neutral"}:  "pt-BR-FranciscaNeural",
	{"male", "it", "neutral"}:    "it-IT-DiegoNeural",
	{"female", "it", "neutral"}:  "it-IT-ElsaNeural",
	{"male", "ru", "neutral"}:    "ru-RU-DmitryNeural",
	{"female", "ru", "neutral"}:  "ru-RU-SvetlanaNeural",
	{"male", "ja", "neutral"}:    "ja-JP-KeitaNeural",
	{"female", "ja", "neutral"}:  "ja-JP-NanamiNeural",
	{"male", "ko", "neutral"}:    "ko-KR-InJoonNeural",
	{"female", "ko", "neutral"}:  "ko-KR-SunHiNeural",
	{"male", "zh", "neutral"}:    "zh-CN-YunxiNeural",
	{"female", "zh", "neutral"}:  "zh-CN-XiaoxiaoNeural",
	{"male", "hi", "neutral"}:    "hi-IN-MadhurNeural",
	{"female", "hi", "neutral"}:  "hi-IN-SwaraNeural",
	{"male", "bn", "neutral"}:    "bn-IN-BashkarNeural",
	{"female", "bn", "neutral"}:  "bn-IN-TanishaaNeural",
	{"male", "ta", "neutral"}:    "ta-IN-ValluvarNeural",
	{"female", "ta", "neutral"}:  "ta-IN-PallaviNeural",
	{"male", "te", "neutral"}:    "te-IN-MohanNeural",
	{"female", "te", "neutral"}:  "te-IN-ShrutiNeural",
	{"male", "mr", "neutral"}:    "mr-IN-ManoharNeural",
	{"female", "mr", "neutral"}:  "mr-IN-AarohiNeural",
	{"male", "gu", "neutral"}:    "gu-IN-NiranjanNeural",
	{"female", "gu", "neutral"}:  "gu-IN-DhwaniNeural",
	{"male", "kn", "neutral"}:    "kn-IN-GaganNeural",
	{"female", "kn", "neutral"}:  "kn-IN-SapnaNeural",
	{"male", "ml", "neutral"}:    "ml-IN-MidhunNeural",
	{"female", "ml", "neutral"}:  "ml-IN-SobhanaNeural",
	{"male", "pa", "neutral"}:    "pa-IN-GurbaniNeural",
	{"female", "pa", "neutral"}:  "pa-IN-GurbaniNeural",
	{"male", "ur", "neutral"}:    "ur-PK-AsadNeural",
	{"female", "ur", "neutral"}:  "ur-PK-UzmaNeural",
	{"male", "th", "neutral"}:    "th-TH-NiwatNeural",
	{"female", "th", "neutral"}:  "th-TH-PremwadeeNeural",
	{"male", "vi", "neutral"}:    "vi-VN-NamMinhNeural",
	{"female", "vi", "neutral"}:  "vi-VN-HoaiMyNeural",
	{"male", "id", "neutral"}:    "id-ID-ArdiNeural",
	{"female", "id", "neutral"}:  "id-ID-GadisNeural",
	{"male", "ms", "neutral"}:    "ms-MY-OsmanNeural",
	{"female", "ms", "neutral"}:  "ms-MY-YasminNeural",
	{"male", "fil", "neutral"}:   "fil-PH-AngeloNeural",
	{"female", "fil", "neutral"}: "fil-PH-BlessicaNeural",
	{"male", "my", "neutral"}:    "my-MM-ThihaNeural",
	{"female", "my", "neutral"}:  "my-MM-NilarNeural",
	{"male", "ar", "neutral"}:    "ar-SA-HamedNeural",
	{"female", "ar", "neutral"}:  "ar-SA-ZariyahNeural",
	{"male", "he", "neutral"}:    "he-IL-AvriNeural",
	{"female", "he", "neutral"}:  "he-IL-HilaNeural",
	{"male", "fa", "neutral"}:    "fa-IR-FaridNeural",
	{"female", "fa", "neutral"}:  "fa-IR-DilaraNeural",
	{"male", "tr", "neutral"}:    "tr-TR-AhmetNeural",
	{"female", "tr", "neutral"}:  "tr-TR-EmelNeural",
	{"male", "nl", "neutral"}:    "nl-NL-MaartenNeural",
	{"female", "nl", "neutral"}:  "nl-NL-ColetteNeural",
	{"male", "pl", "neutral"}:    "pl-PL-MarekNeural",
	{"female", "pl", "neutral"}:  "pl-PL-ZofiaNeural",
	{"male", "sv", "neutral"}:    "sv-SE-MattiasNeural",
	{"female", "sv", "neutral"}:  "sv-SE-SofieNeural",
	{"male", "da", "neutral"}:    "da-DK-JeppeNeural",
	{"female", "da", "neutral"}:  "da-DK-ChristelNeural",
	{"male", "no", "neutral"}:    "nb-NO-FinnNeural",
	{"female", "no", "neutral"}:  "nb-NO-PernilleNeural",
	{"male", "fi", "neutral"}:    "fi-FI-HarriNeural",
	{"female", "fi", "neutral"}:  "fi-FI-NooraNeural",
	{"male", "el", "neutral"}:    "el-GR-NestorasNeural",
	{"female", "el", "neutral"}:  "el-GR-AthinaNeural",
	{"male", "cs", "neutral"}:    "cs-CZ-AntoninNeural",
	{"female", "cs", "neutral"}:  "cs-CZ-VlastaNeural",
	{"male", "hu", "neutral"}:    "hu-HU-TamasNeural",
	{"female", "hu", "neutral"}:  "hu-HU-NoemiNeural",
	{"male", "ro", "neutral"}:    "ro-RO-EmilNeural",
	{"female", "ro", "neutral"}:  "ro-RO-AlinaNeural",
	{"male", "uk", "neutral"}:    "uk-UA-OstapNeural",
	{"female", "uk", "neutral"}:  "uk-UA-PolinaNeural",
	{"male", "bg", "neutral"}:    "bg-BG-BorislavNeural",
	{"female", "bg", "neutral"}:  "bg-BG-KalinaNeural",
	{"male", "sk", "neutral"}:    "sk-SK-LukasNeural",
	{"female", "sk", "neutral"}:  "sk-SK-ViktoriaNeural",
	{"male", "hr", "neutral"}:    "hr-HR-SreckoNeural",
	{"female", "hr", "neutral"}:  "hr-HR-GabrijelaNeural",
	{"male", "sl", "neutral"}:    "sl-SI-RokNeural",
	{"female", "sl", "neutral"}:  "sl-SI-PetraNeural",
	{"male", "lt", "neutral"}:    "lt-LT-LeonasNeural",
	{"female", "lt", "neutral"}:  "lt-LT-OnaNeural",
	{"male", "lv", "neutral"}:    "lv-LV-NilsNeural",
	{"female", "lv", "neutral"}:  "lv-LV-EveritaNeural",
	{"male", "et", "neutral"}:    "et-EE-KertNeural",
	{"female", "et", "neutral"}:  "et-EE-AnuNeural",
	{"male", "ca", "neutral"}:    "ca-ES-EnricNeural",
	{"female", "ca", "neutral"}:  "ca-ES-JoanaNeural",
	{"male", "ga", "neutral"}:    "ga-IE-ColmNeural",
	{"female", "ga", "neutral"}:  "ga-IE-OrlaNeural",
	{"male", "cy", "neutral"}:    "cy-GB-AledNeural",
	{"female", "cy", "neutral"}:  "cy-GB-NiaNeural",
	{"male", "sw", "neutral"}:    "sw-KE-RafikiNeural",
	{"female", "sw", "neutral"}:  "sw-KE-ZuriNeural",
	{"male", "af", "neutral"}:    "af-ZA-WillemNeural",
	{"female", "af", "neutral"}:  "af-ZA-AdriNeural",
	{"male", "am", "neutral"}:    "am-ET-AmehaNeural",
	{"female", "am", "neutral"}:  "am-ET-MekdesNeural",
	{"male", "zu", "neutral"}:    "zu-ZA-ThembaNeural",
	{"female", "zu", "neutral"}:  "zu-ZA-ThandoNeural",
}

// 各语言的默认音色
var languageDefaults = map[string]Selector{
	"en":  "en-US-AriaNeural",
	"es":  "es-ES-ElviraNeural",
	"fr":  "fr-FR-DeniseNeural",
	"de":  "de-DE-KatjaNeural",
	"pt":  "pt-BR-FranciscaNeural",
	"it":  "it-IT-ElsaNeural",
	"ru":  "ru-RU-SvetlanaNeural",
	"ja":  "ja-JP-NanamiNeural",
	"ko":  "ko-KR-SunHiNeural",
	"zh":  "zh-CN-XiaoxiaoNeural",
	"hi":  "hi-IN-SwaraNeural",
	"bn":  "bn-IN-TanishaaNeural",
	"ta":  "ta-IN-PallaviNeural",
	"te":  "te-IN-ShrutiNeural",
	"mr":  "mr-IN-AarohiNeural",
	"gu":  "gu-IN-DhwaniNeural",
	"kn":  "kn-IN-SapnaNeural",
	"ml":  "ml-IN-SobhanaNeural",
	"pa":  "pa-IN-GurbaniNeural",
	"ur":  "ur-PK-UzmaNeural",
	"th":  "th-TH-PremwadeeNeural",
	"vi":  "vi-VN-HoaiMyNeural",
	"id":  "id-ID-GadisNeural",
	"ms":  "ms-MY-YasminNeural",
	"fil": "fil-PH-BlessicaNeural",
	"my":  "my-MM-NilarNeural",
	"ar":  "ar-SA-ZariyahNeural",
	"he":  "he-IL-HilaNeural",
	"fa":  "fa-IR-DilaraNeural",
	"tr":  "tr-TR-EmelNeural",
	"nl":  "nl-NL-ColetteNeural",
	"pl":  "pl-PL-ZofiaNeural",
	"sv":  "sv-SE-SofieNeural",
	"da":  "da-DK-ChristelNeural",
	"no":  "nb-NO-PernilleNeural",
	"fi":  "fi-FI-NooraNeural",
	"el":  "el-GR-AthinaNeural",
	"cs":  "cs-CZ-VlastaNeural",
	"hu":  "hu-HU-NoemiNeural",
	"ro":  "ro-RO-AlinaNeural",
	"uk":  "uk-UA-PolinaNeural",
	"bg":  "bg-BG-KalinaNeural",
	"sk":  "sk-SK-ViktoriaNeural",
	"hr":  "hr-HR-GabrijelaNeural",
	"sl":  "sl-SI-PetraNeural",
	"lt":  "lt-LT-OnaNeural",
	"lv":  "lv-LV-EveritaNeural",
	"et":  "et-EE-AnuNeural",
	"ca":  "ca-ES-JoanaNeural",
	"ga":  "ga-IE-OrlaNeural",
	"cy":  "cy-GB-NiaNeural",
	"sw":  "sw-KE-ZuriNeural",
	"af":  "af-ZA-AdriNeural",
	"am":  "am-ET-MekdesNeural",
	"zu":  "zu-ZA-ThandoNeural",
}
