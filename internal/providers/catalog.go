package providers

import "slices"

// ProviderCard is the static description of a builtin provider.
type ProviderCard struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// DisableBrowserRequest marks vendors whose API cannot be called from a
	// browser, so requests are always relayed through the server.
	DisableBrowserRequest bool `json:"disableBrowserRequest,omitempty"`
	// DefaultBaseURL is the OpenAI-compatible API root used for model
	// discovery when the user has not configured one. Empty means discovery
	// needs a user supplied baseURL.
	DefaultBaseURL string `json:"defaultBaseURL,omitempty"`
	// APIKeyLabel is the label of the secret input field.
	APIKeyLabel string `json:"apiKeyLabel"`
	AuthHeader  string `json:"-"`
	AuthPrefix  string `json:"-"`
}

const defaultAPIKeyLabel = "API Key"

var catalog = []ProviderCard{
	{ID: "ai21", Name: "Ai21Labs", DefaultBaseURL: "https://api.ai21.com/studio/v1"},
	{ID: "ai360", Name: "360 AI", DefaultBaseURL: "https://api.360.cn/v1"},
	{ID: "anthropic", Name: "Anthropic", DefaultBaseURL: "https://api.anthropic.com/v1", AuthHeader: "x-api-key"},
	{ID: "azure", Name: "Azure OpenAI"},
	{ID: "azureai", Name: "Azure AI"},
	{ID: "baichuan", Name: "Baichuan", DisableBrowserRequest: true, DefaultBaseURL: "https://api.baichuan-ai.com/v1"},
	{ID: "bedrock", Name: "Bedrock", DisableBrowserRequest: true},
	{ID: "cloudflare", Name: "Cloudflare Workers AI", DisableBrowserRequest: true},
	{ID: "deepseek", Name: "DeepSeek", DefaultBaseURL: "https://api.deepseek.com/v1"},
	{ID: "fireworksai", Name: "Fireworks AI", DefaultBaseURL: "https://api.fireworks.ai/inference/v1"},
	{ID: "giteeai", Name: "Gitee AI", DefaultBaseURL: "https://ai.gitee.com/v1"},
	{ID: "github", Name: "GitHub", DefaultBaseURL: "https://models.inference.ai.azure.com"},
	{ID: "google", Name: "Google"},
	{ID: "groq", Name: "Groq", DefaultBaseURL: "https://api.groq.com/openai/v1"},
	{ID: "higress", Name: "Higress"},
	{ID: "huggingface", Name: "HuggingFace", APIKeyLabel: "Access Token", DefaultBaseURL: "https://api-inference.huggingface.co/v1"},
	{ID: "hunyuan", Name: "Hunyuan", DefaultBaseURL: "https://api.hunyuan.cloud.tencent.com/v1"},
	{ID: "internlm", Name: "InternLM", DefaultBaseURL: "https://internlm-chat.intern-ai.org.cn/puyu/api/v1"},
	{ID: "jina", Name: "Jina AI", DefaultBaseURL: "https://deepsearch.jina.ai/v1"},
	{ID: "lmstudio", Name: "LM Studio", DefaultBaseURL: "http://127.0.0.1:1234/v1"},
	{ID: "minimax", Name: "Minimax", DisableBrowserRequest: true, DefaultBaseURL: "https://api.minimax.chat/v1"},
	{ID: "mistral", Name: "Mistral", DefaultBaseURL: "https://api.mistral.ai/v1"},
	{ID: "moonshot", Name: "Moonshot", DefaultBaseURL: "https://api.moonshot.cn/v1"},
	{ID: "novita", Name: "Novita", DefaultBaseURL: "https://api.novita.ai/v3/openai"},
	{ID: "nvidia", Name: "Nvidia NIM", DefaultBaseURL: "https://integrate.api.nvidia.com/v1"},
	{ID: "ollama", Name: "Ollama", DefaultBaseURL: "http://127.0.0.1:11434/v1"},
	{ID: "openai", Name: "OpenAI", DefaultBaseURL: "https://api.openai.com/v1"},
	{ID: "openrouter", Name: "OpenRouter", DefaultBaseURL: "https://openrouter.ai/api/v1"},
	{ID: "perplexity", Name: "Perplexity"},
	{ID: "qwen", Name: "Qwen", DefaultBaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1"},
	{ID: "sensenova", Name: "SenseNova", DefaultBaseURL: "https://api.sensenova.cn/compatible-mode/v1"},
	{ID: "siliconcloud", Name: "SiliconCloud", DefaultBaseURL: "https://api.siliconflow.cn/v1"},
	{ID: "spark", Name: "Spark", DisableBrowserRequest: true},
	{ID: "stepfun", Name: "Stepfun", DefaultBaseURL: "https://api.stepfun.com/v1"},
	{ID: "taichu", Name: "Taichu", DefaultBaseURL: "https://ai-maas.wair.ac.cn/maas/v1"},
	{ID: "togetherai", Name: "Together AI", DefaultBaseURL: "https://api.together.xyz/v1"},
	{ID: "upstage", Name: "Upstage", DefaultBaseURL: "https://api.upstage.ai/v1/solar"},
	{ID: "vllm", Name: "vLLM", DefaultBaseURL: "http://127.0.0.1:8000/v1"},
	{ID: "volcengine", Name: "Volcengine", DefaultBaseURL: "https://ark.cn-beijing.volces.com/api/v3"},
	{ID: "wenxin", Name: "Wenxin", DisableBrowserRequest: true},
	{ID: "xai", Name: "xAI", DefaultBaseURL: "https://api.x.ai/v1"},
	{ID: "zeroone", Name: "01.AI", DefaultBaseURL: "https://api.lingyiwanwu.com/v1"},
	{ID: "zhipu", Name: "ZhiPu", DefaultBaseURL: "https://open.bigmodel.cn/api/paas/v4"},
}

var cardsByID = func() map[string]ProviderCard {
	m := make(map[string]ProviderCard, len(catalog))
	for _, c := range catalog {
		if c.APIKeyLabel == "" {
			c.APIKeyLabel = defaultAPIKeyLabel
		}
		m[c.ID] = c
	}
	return m
}()

// IsBuiltin reports whether id belongs to the builtin provider identity set.
// Repositories use it to infer the source of rows created on first touch.
func IsBuiltin(id string) bool {
	_, ok := cardsByID[id]
	return ok
}

// BuiltinIDs returns the sorted builtin provider ids.
func BuiltinIDs() []string {
	ids := make([]string, 0, len(cardsByID))
	for id := range cardsByID {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Card returns the catalog entry for a builtin provider.
func Card(id string) (ProviderCard, bool) {
	c, ok := cardsByID[id]
	return c, ok
}

// Cards returns all builtin cards in catalog order.
func Cards() []ProviderCard {
	out := make([]ProviderCard, 0, len(catalog))
	for _, c := range catalog {
		out = append(out, cardsByID[c.ID])
	}
	return out
}

func IsDisableBrowserRequest(id string) bool {
	return cardsByID[id].DisableBrowserRequest
}
