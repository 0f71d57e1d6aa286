package security

import "regexp"

// Injection categories. The set is closed; the classifier keys escalation
// decisions off these names.
const (
	CategoryInstructionOverride = "instruction_override"
	CategorySystemData          = "system_data"
	CategoryMetaQuery           = "meta_query"
	CategoryRoleplay            = "roleplay"
	CategoryChainInjection      = "chain_injection"
	CategoryEncodingAttack      = "encoding_attack"
	CategorySocialEngineering   = "social_engineering"
	CategoryContextManipulation = "context_manipulation"
	CategoryMultiStepExploit    = "multi_step_exploit"
)

// injectionPattern pairs a compiled regex with its category and severity.
type injectionPattern struct {
	re       *regexp.Regexp
	category string
	severity float64
}

// Attempts to override or disable system instructions.
var instructionOverridePatterns = []injectionPattern{
	{regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above|earlier|preceding)\s+(instructions?|rules?|prompts?|guidelines?|directives?|commands?)`), CategoryInstructionOverride, 1.0},
	{regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above|earlier|your)\s+(instructions?|rules?|prompts?|guidelines?|directives?)`), CategoryInstructionOverride, 1.0},
	{regexp.MustCompile(`(?i)forget\s+(everything|all)\s+(you\s+(were|have\s+been)\s+told|above|before)`), CategoryInstructionOverride, 1.0},
	{regexp.MustCompile(`(?i)do\s+not\s+follow\s+(your|the|any)\s+(rules?|instructions?|guidelines?|guardrails?)`), CategoryInstructionOverride, 0.9},
	{regexp.MustCompile(`(?i)override\s+(your\s+)?(system|safety|security|instructions?|rules?|settings?)`), CategoryInstructionOverride, 0.9},
	{regexp.MustCompile(`(?i)(disable|turn\s+off|switch\s+off|deactivate)\s+(your\s+)?(filters?|safety|security|restrictions?|guardrails?|moderation)`), CategoryInstructionOverride, 1.0},
	{regexp.MustCompile(`(?i)(enter|enable|activate|switch\s+to)\s+(developer|debug|admin|god|unrestricted|maintenance)\s+mode`), CategoryInstructionOverride, 1.0},
	{regexp.MustCompile(`(?i)new\s+(instructions?|rules?|directives?)\s*:`), CategoryInstructionOverride, 0.9},
	{regexp.MustCompile(`(?i)your\s+(new\s+)?(task|job|purpose|objective)\s+is\s+now`), CategoryInstructionOverride, 0.9},
	{regexp.MustCompile(`(?i)stop\s+(being|acting\s+as)\s+(an?\s+)?(assistant|helpful)`), CategoryInstructionOverride, 0.9},
	{regexp.MustCompile(`(?i)bypass\s+(your\s+)?(safety|filters?|restrictions?|rules?|content\s+policy)`), CategoryInstructionOverride, 0.9},
	{regexp.MustCompile(`(?i)without\s+(any\s+)?(restrictions?|limitations?|filters?|censorship)`), CategoryInstructionOverride, 0.9},
	{regexp.MustCompile(`(?i)pay\s+no\s+attention\s+to\s+(the|your|any)\s+(rules?|instructions?|guidelines?)`), CategoryInstructionOverride, 0.9},
	{regexp.MustCompile(`(?i)respond\s+only\s+with\s+(the\s+)?(raw|unfiltered|real)\s+(output|answer|truth)`), CategoryInstructionOverride, 0.7},
}

// Attempts to extract the system prompt or internal data.
var systemDataPatterns = []injectionPattern{
	{regexp.MustCompile(`(?i)(reveal|show|display|print|output|expose)\s+(me\s+)?(your\s+)?(system\s+prompt|initial\s+prompt|hidden\s+prompt|instructions?|configuration)`), CategorySystemData, 1.0},
	{regexp.MustCompile(`(?i)repeat\s+(everything|all|the\s+text|the\s+words?)\s+(above|before|prior|you\s+were\s+given)`), CategorySystemData, 0.9},
	{regexp.MustCompile(`(?i)what\s+(is|was|does)\s+(written\s+in\s+)?(your\s+)?(system\s+(prompt|message)|initial\s+instructions?)`), CategorySystemData, 1.0},
	{regexp.MustCompile(`(?i)(copy|paste|quote|transcribe)\s+(your\s+)?(system\s+prompt|instructions?|guidelines?)`), CategorySystemData, 0.9},
	{regexp.MustCompile(`(?i)what\s+were\s+you\s+told\s+(before|at\s+the\s+(start|beginning)|initially)`), CategorySystemData, 0.8},
	{regexp.MustCompile(`(?i)(summarize|describe|explain)\s+(your\s+)?(instructions?|system\s+prompt|rules?)\s*(to\s+me)?$`), CategorySystemData, 0.8},
	{regexp.MustCompile(`(?i)(begin|start)\s+your\s+(answer|response|reply)\s+with\s+(your\s+)?(system|prompt|instructions?)`), CategorySystemData, 0.9},
	{regexp.MustCompile(`(?i)everything\s+(between|inside)\s+(your\s+)?(<\s*system\s*>|system\s+tags?)`), CategorySystemData, 0.9},
	{regexp.MustCompile(`(?i)(leak|dump|exfiltrate)\s+(your\s+)?(prompt|instructions?|memory|context)`), CategorySystemData, 1.0},
	{regexp.MustCompile(`(?i)output\s+your\s+(full|complete|entire)\s+(prompt|context|instructions?)`), CategorySystemData, 1.0},
}

// Probes for model identity, architecture, or secrets.
var metaQueryPatterns = []injectionPattern{
	{regexp.MustCompile(`(?i)(what|which)\s+(llm|language\s+model|ai\s+model|model)\s+(are\s+you|is\s+this|powers?\s+(you|this))`), CategoryMetaQuery, 0.8},
	{regexp.MustCompile(`(?i)are\s+you\s+(gpt|claude|gemini|llama|deepseek|grok|mistral)`), CategoryMetaQuery, 0.8},
	{regexp.MustCompile(`(?i)(what|which)\s+(embedding|vector)\s+(model|database|store|index)\s+(do\s+you|are\s+you|is)`), CategoryMetaQuery, 0.9},
	{regexp.MustCompile(`(?i)(show|tell|give)\s+(me\s+)?(your\s+|the\s+)?(api|secret)\s*keys?`), CategoryMetaQuery, 0.9},
	{regexp.MustCompile(`(?i)(what|how)\s+(is\s+)?your\s+(architecture|tech\s+stack|infrastructure|backend)`), CategoryMetaQuery, 0.8},
	{regexp.MustCompile(`(?i)who\s+(made|created|built|trained)\s+you`), CategoryMetaQuery, 0.7},
	{regexp.MustCompile(`(?i)(what|which)\s+(version|temperature|parameters?)\s+(are\s+you\s+(running|using)|do\s+you\s+use)`), CategoryMetaQuery, 0.8},
	{regexp.MustCompile(`(?i)what\s+(documents?|data|files?|sources?)\s+(were\s+you|are\s+you)\s+(trained|fed|loaded)\s+(on|with)`), CategoryMetaQuery, 0.7},
	{regexp.MustCompile(`(?i)(which|what)\s+(company|provider|vendor)\s+(hosts?|runs?|serves?)\s+(you|this\s+(bot|assistant|service))`), CategoryMetaQuery, 0.7},
}

// Persona hijacking and jailbreak roleplay.
var roleplayPatterns = []injectionPattern{
	{regexp.MustCompile(`(?i)you\s+are\s+now\s+(dan|stan|dude|aim|an?\s+unrestricted)`), CategoryRoleplay, 1.0},
	{regexp.MustCompile(`(?i)\bDAN\b.{0,20}(mode|jailbreak|prompt)`), CategoryRoleplay, 1.0},
	{regexp.MustCompile(`(?i)act\s+as\s+(an?\s+)?(unrestricted|unfiltered|uncensored|jailbroken|evil|rogue)\s*(ai|assistant|model)?`), CategoryRoleplay, 1.0},
	{regexp.MustCompile(`(?i)(pretend|imagine|roleplay)\s+(that\s+)?(you\s+)?(are|have|were)\s+(free\s+of|without|no)\s+(rules?|restrictions?|guidelines?|filters?)`), CategoryRoleplay, 1.0},
	{regexp.MustCompile(`(?i)you\s+have\s+(no|zero)\s+(restrictions?|rules?|limits?|guidelines?|ethical\s+constraints?)`), CategoryRoleplay, 0.9},
	{regexp.MustCompile(`(?i)play\s+the\s+(role|part)\s+of\s+(an?\s+)?(hacker|villain|unrestricted)`), CategoryRoleplay, 0.9},
	{regexp.MustCompile(`(?i)from\s+now\s+on\s+you\s+(are|will\s+(be|act|respond))`), CategoryRoleplay, 0.9},
	{regexp.MustCompile(`(?i)(simulate|emulate)\s+(an?\s+)?(ai|model|assistant)\s+(without|with\s+no)\s+(safety|rules?|filters?)`), CategoryRoleplay, 1.0},
	{regexp.MustCompile(`(?i)(respond|answer)\s+as\s+(two|both)\s+(ais?|personas?|characters?)`), CategoryRoleplay, 0.8},
}

// Fake conversation turns and template tokens smuggled into input.
var chainInjectionPatterns = []injectionPattern{
	{regexp.MustCompile(`(?i)\[\/?INST\]`), CategoryChainInjection, 0.9},
	{regexp.MustCompile(`(?i)<\|?im_(start|end)\|?>`), CategoryChainInjection, 0.9},
	{regexp.MustCompile(`(?i)<\|(system|user|assistant|endoftext)\|>`), CategoryChainInjection, 0.9},
	{regexp.MustCompile(`(?i)<<\s*\/?SYS\s*>>`), CategoryChainInjection, 0.9},
	{regexp.MustCompile(`(?im)^\s*(human|user|assistant|ai)\s*:\s`), CategoryChainInjection, 0.8},
	{regexp.MustCompile(`(?i)\bsystem\s*:\s*(reveal|ignore|you|override|new)`), CategoryChainInjection, 1.0},
	{regexp.MustCompile(`(?i)###\s*(system|instruction|assistant|admin)\b`), CategoryChainInjection, 0.8},
	{regexp.MustCompile(`(?i)(end|close)\s+of\s+(system|assistant)\s+(message|prompt|turn)`), CategoryChainInjection, 0.9},
	{regexp.MustCompile(`(?i)\{\{\s*(system|prompt|instructions?)\s*\}\}`), CategoryChainInjection, 0.8},
}

// Encoded or obfuscated payload delivery.
var encodingAttackPatterns = []injectionPattern{
	{regexp.MustCompile(`(?i)(decode|execute|run|evaluate)\s+(this|the\s+following)\s+base64`), CategoryEncodingAttack, 0.9},
	{regexp.MustCompile(`(?i)base64\s*:\s*[A-Za-z0-9+/=]{8,}`), CategoryEncodingAttack, 0.9},
	{regexp.MustCompile(`(?i)rot13\s*[:(]`), CategoryEncodingAttack, 0.8},
	{regexp.MustCompile(`\\u[0-9a-fA-F]{4}`), CategoryEncodingAttack, 0.7},
	{regexp.MustCompile(`(\\x[0-9a-fA-F]{2}){3,}`), CategoryEncodingAttack, 0.8},
	{regexp.MustCompile(`(?i)(convert|translate)\s+(this|the\s+following)\s+(from|to|into)\s+(hex|binary|morse|base64)`), CategoryEncodingAttack, 0.7},
	{regexp.MustCompile(`(?i)(read|interpret)\s+(it|this)\s+backwards?\s+(and|then)\s+(do|execute|follow)`), CategoryEncodingAttack, 0.8},
	{regexp.MustCompile(`(?i)answer\s+in\s+(leetspeak|pig\s+latin|reverse)\s+(to|so\s+you\s+can)\s+(avoid|bypass|evade)`), CategoryEncodingAttack, 0.8},
}

// Claimed authority, urgency, or false pretext.
var socialEngineeringPatterns = []injectionPattern{
	{regexp.MustCompile(`(?i)i\s+am\s+(your|the)\s+(developer|creator|administrator|admin|owner|engineer)`), CategorySocialEngineering, 0.9},
	{regexp.MustCompile(`(?i)as\s+(an?\s+)?(authorized|admin|root|superuser|privileged)\s+(user|person|account)`), CategorySocialEngineering, 0.8},
	{regexp.MustCompile(`(?i)this\s+is\s+(an\s+)?(emergency|urgent|critical)\b.{0,40}(bypass|ignore|override|disable)`), CategorySocialEngineering, 0.9},
	{regexp.MustCompile(`(?i)(for|it'?s\s+for)\s+(security\s+)?(research|educational|academic|testing)\s+purposes?`), CategorySocialEngineering, 0.5},
	{regexp.MustCompile(`(?i)i\s+(work|am)\s+(at|for|with)\s+(openai|anthropic|google|deepseek|the\s+company)`), CategorySocialEngineering, 0.8},
	{regexp.MustCompile(`(?i)you\s+(must|have\s+to|are\s+required\s+to)\s+(comply|obey|answer|tell\s+me)`), CategorySocialEngineering, 0.7},
	{regexp.MustCompile(`(?i)(nobody|no\s+one)\s+(will|is\s+going\s+to)\s+(know|find\s+out|see)`), CategorySocialEngineering, 0.7},
	{regexp.MustCompile(`(?i)(hypothetically|theoretically)\s*,?\s+(if\s+you\s+(had|could)|how\s+would\s+you)\s+.{0,40}(bypass|ignore|leak|reveal)`), CategorySocialEngineering, 0.8},
	{regexp.MustCompile(`(?i)my\s+(late\s+)?(grandma|grandmother)\s+used\s+to\s+(tell|read|recite)\s+me`), CategorySocialEngineering, 0.7},
}

// Attempts to rewrite the conversational frame or policies.
var contextManipulationPatterns = []injectionPattern{
	{regexp.MustCompile(`(?i)(your|the)\s+(policy|policies|guidelines?)\s+(has|have)\s+(been\s+)?(updated|changed|revised)`), CategoryContextManipulation, 0.9},
	{regexp.MustCompile(`(?i)(management|the\s+company|legal)\s+(has\s+)?(approved|authorized|cleared)\s+(this|you\s+to)`), CategoryContextManipulation, 0.9},
	{regexp.MustCompile(`(?i)i\s+(have|was\s+given|got)\s+(permission|authorization|clearance)\s+(from|by)`), CategoryContextManipulation, 0.8},
	{regexp.MustCompile(`(?i)(previous|above|earlier)\s+(conversation|messages?|context)\s+(is|was|were)\s+(just\s+)?(a\s+)?(test|fake|simulation|example)`), CategoryContextManipulation, 0.8},
	{regexp.MustCompile(`(?i)the\s+(real|actual|true)\s+(instructions?|task|conversation)\s+(is|are|starts?|begins?)`), CategoryContextManipulation, 0.9},
	{regexp.MustCompile(`(?i)(we|you\s+and\s+i)\s+(are|'re)\s+(now\s+)?(in|playing)\s+(a\s+)?(game|simulation|sandbox)\s+(where|without)`), CategoryContextManipulation, 0.8},
	{regexp.MustCompile(`(?i)this\s+(message|request)\s+(supersedes?|overrides?|replaces?)\s+(all|any|previous)`), CategoryContextManipulation, 1.0},
	{regexp.MustCompile(`(?i)(ignore|discard)\s+the\s+(documentation|document|context)\s+(above|below|provided)`), CategoryContextManipulation, 0.9},
}

// Staged exploits spread over numbered steps.
var multiStepExploitPatterns = []injectionPattern{
	{regexp.MustCompile(`(?i)step\s*1\s*[:.)]\s*(forget|ignore|disregard|disable)`), CategoryMultiStepExploit, 1.0},
	{regexp.MustCompile(`(?i)first\s*[,:]?\s+(forget|ignore|disregard|disable)\s+(your|all|the)`), CategoryMultiStepExploit, 1.0},
	{regexp.MustCompile(`(?i)(then|next|after\s+that)\s*[,:]?\s+(reveal|show|output|print)\s+(your|the)\s+(system|prompt|instructions?)`), CategoryMultiStepExploit, 0.9},
	{regexp.MustCompile(`(?i)(once|when)\s+you\s+(have|'ve)\s+(done|completed)\s+(that|this)\s*,?\s+(ignore|reveal|disable)`), CategoryMultiStepExploit, 0.9},
	{regexp.MustCompile(`(?i)do\s+the\s+following\s+in\s+order\s*:.{0,80}(ignore|reveal|bypass|disable)`), CategoryMultiStepExploit, 0.9},
	{regexp.MustCompile(`(?i)(finally|lastly)\s*,?\s+(act|respond|answer)\s+(as\s+if|without)\s+(you\s+had\s+)?(no\s+)?(rules?|restrictions?|instructions?)`), CategoryMultiStepExploit, 0.8},
	{regexp.MustCompile(`(?i)complete\s+these\s+tasks?\s+in\s+(order|sequence).{0,60}(system\s+prompt|ignore|disable|reveal)`), CategoryMultiStepExploit, 0.9},
}

// injectionCatalogue is the complete ordered pattern list evaluated by the
// detector. Assembled once at init and treated as immutable afterwards.
var injectionCatalogue []injectionPattern

func init() {
	groups := [][]injectionPattern{
		instructionOverridePatterns,
		systemDataPatterns,
		metaQueryPatterns,
		roleplayPatterns,
		chainInjectionPatterns,
		encodingAttackPatterns,
		socialEngineeringPatterns,
		contextManipulationPatterns,
		multiStepExploitPatterns,
	}
	total := 0
	for _, g := range groups {
		total += len(g)
	}
	injectionCatalogue = make([]injectionPattern, 0, total)
	for _, g := range groups {
		injectionCatalogue = append(injectionCatalogue, g...)
	}
}
