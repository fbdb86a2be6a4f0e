package catalog

var projects = []Project{
	{
		Title:             "MemexLLM",
		Description:       "A production-ready RAG-powered document intelligence platform that enables users to upload documents, chat with AI using intelligent retrieval, and generate content with proper citations. Features hybrid search, reranking, and secure document processing.",
		Image:             "/project/memexllm.jpg",
		Link:              "https://memexllm.xyz",
		Technologies:      []string{"Next.js 16", "React", "TypeScript", "FastAPI", "PostgreSQL", "Tailwind CSS"},
		GitHub:            "https://github.com/MohitGoyal09/memexllm",
		Live:              "https://memexllm.xyz",
		DetailsSlug:       "/projects/memexllm",
		IsWorking:         true,
		Category:          "full-stack",
		SecondaryCategory: "ai",
	},
	{
		Title:             "Artificial Guruji",
		Description:       "An AI-powered exam preparation platform that generates personalised study materials and customised study schedules, adapting to individual learning styles.",
		Image:             "/project/lms.jpg",
		Link:              "https://guruji-chi.vercel.app/",
		Technologies:      []string{"Next.js", "React", "TypeScript", "Tailwind CSS", "shadcn/ui", "Prisma", "Vercel"},
		GitHub:            "https://github.com/MohitGoyal09/lms",
		Live:              "https://lms-three-theta.vercel.app/",
		DetailsSlug:       "/projects/artificial-guruji",
		IsWorking:         true,
		Category:          "full-stack",
		SecondaryCategory: "ai",
	},
	{
		Title:             "GuardianReport",
		Description:       "A system for secure and anonymous incident reporting with encryption protecting the reporter's identity and a two-way anonymous channel with law enforcement.",
		Image:             "/project/report.jpg",
		Link:              "https://safe-report-omega.vercel.app/",
		Technologies:      []string{"Next.js", "React", "Tailwind CSS", "shadcn/ui", "Prisma", "Vercel"},
		GitHub:            "https://github.com/MohitGoyal09/GuardianReport",
		Live:              "https://safe-report-omega.vercel.app/",
		DetailsSlug:       "/projects/guardian-report",
		IsWorking:         true,
		Category:          "full-stack",
		SecondaryCategory: "ai",
	},
	{
		Title:        "Music Academy",
		Description:  "A responsive landing page for a music institution with clean, modern design and seamless navigation.",
		Image:        "/project/music.jpg",
		Link:         "https://musicacademy-iota.vercel.app/",
		Technologies: []string{"Next.js", "Vercel"},
		GitHub:       "https://github.com/MohitGoyal09/musicacademy",
		Live:         "https://musicacademy-iota.vercel.app/",
		DetailsSlug:  "/projects/music-academy",
		IsWorking:    true,
		Category:     "frontend",
	},
	{
		Title:             "Food Vision Transformer",
		Description:       "A Vision Transformer (ViT) image classifier implemented with PyTorch and fine-tuned on a curated dataset.",
		Image:             "/project/gradio.jpg",
		Link:              "https://github.com/MohitGoyal09/FoodVison-Big",
		Technologies:      []string{"PyTorch"},
		GitHub:            "https://github.com/MohitGoyal09/FoodVison-Big",
		Live:              "https://github.com/MohitGoyal09/FoodVison-Big",
		DetailsSlug:       "/projects/food-vision-transformer",
		IsWorking:         true,
		Category:          "research",
		SecondaryCategory: "ml",
	},
}

var models = []Model{
	{
		Title:             "LLaMA Implementation",
		Description:       `A PyTorch implementation of the LLaMA (Large Language Model Meta AI) architecture based on the paper "LLaMA: Open and Efficient Foundation Language Models" by Touvron et al.`,
		Image:             "/models/llama.png",
		Link:              "https://github.com/MohitGoyal09/llama-implementation",
		Technologies:      []string{"PyTorch"},
		GitHub:            "https://github.com/MohitGoyal09/llama-implementation",
		Live:              "https://github.com/MohitGoyal09/llama-implementation",
		DetailsSlug:       "/models/llama",
		IsWorking:         true,
		Category:          "language-models",
		SecondaryCategory: "research",
		Tags:              []string{"Language Models", "Transformers", "Research", "PyTorch"},
		Paper:             "https://arxiv.org/abs/2302.13971",
		Dataset:           "https://huggingface.co/datasets/tiny_shakespeare",
		Metrics: []Metric{
			{Name: "Parameters", Value: "100M", Description: "Total model parameters for large configuration"},
			{Name: "Training Speed", Value: "2.5x", Description: "Speed improvement with mixed precision"},
			{Name: "Memory Efficiency", Value: "40%", Description: "Memory reduction with optimizations"},
		},
	},
}

var papers = []Paper{
	{
		ID:       "grit",
		Title:    "GRIT: Geometric Reprojection Instruction Tuning",
		Authors:  []string{"Mohit Goyal", "et al."},
		Venue:    "arXiv preprint",
		Year:     2026,
		Abstract: "We propose GRIT, a parameter-efficient instruction tuning framework that explores geometry-aware updates for large language models.",
		ArxivID:  "2601.00231",
		ArxivURL: "https://arxiv.org/abs/2601.00231",
		PDFURL:   "https://arxiv.org/pdf/2601.00231",
		Tags:     []string{"LLM", "Fine-tuning", "Parameter-Efficient", "Instruction Tuning"},
		Featured: true,
		Metrics: []Metric{
			{Name: "Focus", Value: "Instruction Tuning"},
			{Name: "Approach", Value: "Geometry-Aware Updates"},
		},
	},
}

var experiences = []Experience{
	{
		Company:  "C3alabs",
		Position: "Software Engineering Intern",
		Location: "United States (Remote)",
		Image:    "/company/c3alabs.jpg",
		Description: []string{
			"*Built and deployed production-grade AI systems* focusing on reliability, latency and real-user usage.",
			"*Developed agentic AI features* (artifacts, agent skills, multi-agent orchestration) and shipped them to production.",
			"*Designed and productionized advanced RAG pipelines* covering document chunking, retrieval quality and response grounding.",
		},
		StartDate: "October 2025",
		EndDate:   "Present",
		Website:   "https://www.c3alabs.com/",
		LinkedIn:  "https://www.linkedin.com/company/c3alabs",
		Technologies: []Technology{
			{Name: "Langchain", Href: "https://langchain.com/"},
			{Name: "LangGraph", Href: "https://langgraph.dev/"},
			{Name: "Next.js", Href: "https://nextjs.org/"},
			{Name: "FastAPI", Href: "https://fastapi.tiangolo.com/"},
		},
		IsCurrent: true,
	},
	{
		Company:  "RAAPID INC",
		Position: "ML Researcher Intern",
		Location: "Louisville, US (Remote)",
		Image:    "/company/raapid.png",
		Description: []string{
			`*Co-authored a research paper on Large Language Model (LLM) fine-tuning* - <a href="https://arxiv.org/abs/2601.00231">arXiv:2601.00231</a>`,
			"*Developed GRIT (Geometric Reprojection Instruction Tuning)* a framework fine-tuning only *0.997% of LLM parameters* while *outperforming full fine-tuning and LoRA* on standard benchmarks.",
			"*Fine-tuned multiple LLMs* (GPT-2 355M, LLaMA-3B, Mistral-7B) achieving *30% parameter savings* with *40% reduction in compute & memory costs*.",
			"*Benchmarked GRIT* across NLP tasks on Alpaca, Dolly-15k, BoolQ and GSM8K.",
		},
		StartDate: "April 2025",
		EndDate:   "Present",
		Website:   "https://www.raapidinc.com/",
		LinkedIn:  "https://www.linkedin.com/company/raapid",
		Paper:     "https://arxiv.org/abs/2601.00231",
		Technologies: []Technology{
			{Name: "PyTorch", Href: "https://pytorch.org/"},
		},
		IsCurrent: true,
	},
	{
		Company:  "Kartavya Technology",
		Position: "AI Agent Developer Intern",
		Location: "Bengaluru, India (Remote)",
		Image:    "/company/Kartavya.jpg",
		Description: []string{
			"*Autonomous Market Research Agent*: automated market and competitor research with real-time data collection and report generation.",
			"*AI Voice Interviewer*: voice-based interviewer that handles inbound calls and produces structured interview summaries.",
			"*Credit Risk Analysis Agent*: custom ML models scoring applicant default risk.",
			"*Outbound Calling Platform Agent*: scheduling, executing and logging calls for lead generation.",
		},
		StartDate: "June 2025",
		EndDate:   "August 2025",
		Website:   "https://kartavya.tech",
		LinkedIn:  "https://www.linkedin.com/company/kartavyatech",
		GitHub:    "https://github.com/Kartavya-AI",
		Technologies: []Technology{
			{Name: "CrewAI", Href: "https://crewai.org/"},
			{Name: "Langchain", Href: "https://langchain.com/"},
			{Name: "LangGraph", Href: "https://langgraph.dev/"},
			{Name: "Next.js", Href: "https://nextjs.org/"},
			{Name: "Node.js", Href: "https://nodejs.org/"},
			{Name: "FastAPI", Href: "https://fastapi.tiangolo.com/"},
			{Name: "AWS", Href: "https://aws.amazon.com/"},
		},
	},
}

// certificates are listed ahead of anything discovered on disk.
var certificates = []Certificate{}
