// Package prompts holds the prompt templates that constrain the
// generation service. The pipeline treats model output as opaque text;
// these templates are the only place its shape is influenced.
package prompts

import (
	"fmt"

	"papersum/internal/sections"
)

// System is the safety-constrained system prompt shared by every call.
const System = `You are an expert medical research analyst tasked with summarizing peer-reviewed medical research papers.

CRITICAL RULES - NEVER VIOLATE:
1. ACCURACY: Use ONLY information explicitly stated in the source text
2. NO INFERENCE: Do not infer, interpret, or extrapolate beyond what authors state
3. PRESERVE NUMBERS: Copy all numerical results, statistics, p-values, and confidence intervals EXACTLY as reported
4. NO CLINICAL ADVICE: Never provide medical advice, treatment recommendations, or clinical guidance
5. AUTHOR CONCLUSIONS ONLY: Only report conclusions explicitly stated by the authors
6. NO SPECULATION: Do not speculate about implications, mechanisms, or applications
7. ACKNOWLEDGE LIMITATIONS: Include all limitations mentioned by authors
8. NO CHERRY-PICKING: Represent the full picture, including negative or null results

Your role is to extract and condense information, not to interpret or advise.`

// ChunkSummary is the map-phase prompt for one chunk of a section.
func ChunkSummary(section sections.Name, chunkText string) string {
	return fmt.Sprintf(`Summarize the following excerpt from the %[1]s section of a medical research paper.

INSTRUCTIONS:
- Extract key information relevant to a %[1]s section
- Preserve ALL numerical values, statistics, and measurements exactly
- Keep technical terminology
- Be concise but comprehensive
- If multiple findings, list them separately
- Do not add interpretation

TEXT:
%[2]s

SUMMARY:`, section, chunkText)
}

// SectionSynthesis is the reduce-phase prompt merging chunk summaries.
func SectionSynthesis(section sections.Name, chunkSummaries string, numChunks int) string {
	return fmt.Sprintf(`You have %d summaries from different parts of the %s section. Combine them into a coherent summary.

INSTRUCTIONS:
- Merge overlapping information
- Preserve ALL numerical values exactly
- Maintain logical flow
- Eliminate redundancy
- Keep concise (max 300 words for most sections)
- Organize information logically

CHUNK SUMMARIES:
%s

COMBINED SUMMARY:`, numChunks, section, chunkSummaries)
}

// Metadata asks for objective, study type, and population as JSON.
func Metadata(text string) string {
	return fmt.Sprintf(`Extract the following metadata from this research paper text. The text may include abstract, introduction, and methods sections - extract from wherever the information appears.

1. **objective**: The stated aim or research question of the study, in one sentence.

2. **study_type**: Type of study. Look in both introduction and methods. Examples:
   - Clinical: RCT, cohort, case-control, cross-sectional, meta-analysis
   - Basic science: In vitro study, laboratory study, animal study, cell culture study, experimental study
   - Other: Systematic review, case series, observational study

3. **population**: Who or what was studied. Look in methods section if not in abstract:
   - For clinical studies: sample size, demographics, inclusion/exclusion criteria
   - For in vitro/lab studies: cell lines (e.g., mouse osteoblasts), materials (e.g., Ti6Al4V alloy), specimens
   - For animal studies: species, sample size

You MUST provide all fields. If not explicitly stated, infer the closest match from context.

TEXT:
%s

Respond ONLY with a JSON object (no markdown, no explanation):
{
  "objective": "...",
  "study_type": "...",
  "population": "..."
}`, text)
}

// MethodsNarrative asks for a prose summary of the methods.
func MethodsNarrative(methodsText string) string {
	return fmt.Sprintf(`Summarize the study methods from the text below.

INSTRUCTIONS:
- Describe design, setting, participants/materials, interventions, and analysis
- Preserve sample sizes, doses, durations, and statistical tests exactly
- Plain prose, no headers, no bullet points

METHODS:
%s

METHODS SUMMARY:`, methodsText)
}

// Findings asks for discrete finding statements as a JSON array.
func Findings(resultsText string) string {
	return fmt.Sprintf(`Extract the key findings from the results section.

CRITICAL:
- List each distinct finding separately
- Include EXACT numerical values (means, SDs, p-values, CIs, effect sizes)
- Specify sample sizes if reported
- Include both positive and negative/null results
- Do not interpret or explain results

RESULTS SECTION:
%s

KEY FINDINGS (as JSON array of strings):
[
  "Finding 1 with exact numbers",
  "Finding 2 with exact numbers",
  ...
]`, resultsText)
}

// Limitations asks for author-stated limitations as a JSON array.
func Limitations(text string) string {
	return fmt.Sprintf(`Extract the study limitations as stated by the authors.

List each limitation separately. Include only limitations explicitly mentioned in the text.

TEXT:
%s

LIMITATIONS (as JSON array of strings):
[
  "Limitation 1",
  "Limitation 2",
  ...
]

If no limitations are mentioned, respond with: []`, text)
}

// Conclusions asks for the authors' stated conclusions.
func Conclusions(conclusionText string) string {
	return fmt.Sprintf(`Extract the authors' stated conclusions from the discussion/conclusion section.

CRITICAL:
- Use ONLY conclusions explicitly stated by the authors
- Do not infer or interpret
- Preserve the authors' hedging language (e.g., "suggests", "may indicate")
- Include important caveats they mention

DISCUSSION/CONCLUSION:
%s

AUTHOR CONCLUSIONS (1-2 sentences):`, conclusionText)
}

// Keywords asks for key terms as a lowercase JSON array.
func Keywords(text string) string {
	return fmt.Sprintf(`Extract 5-8 key medical/scientific terms from this paper.

Focus on:
- Medical conditions/diseases
- Interventions/treatments
- Study type
- Primary outcomes
- Population characteristics

TEXT:
%s

KEYWORDS (as JSON array, lowercase):
["keyword1", "keyword2", ...]`, text)
}
