package domain

// StepDef — определение шага пайплайна.
//
// Шаги — статическая конфигурация: загружаются один раз для типа
// пайплайна и не меняются между runs. Граф строго линейный — каждый
// шаг имеет ровно одного преемника (следующий по порядку в Steps);
// единственное исключение — bypass-ребро от входного шага к агрегации,
// задействуемое в development mode.
type StepDef struct {
	// Name — уникальное имя шага внутри пайплайна.
	Name string `json:"name" yaml:"name"`

	// Agent — имя агента (ключ в PipelineConfig.Endpoints).
	Agent string `json:"agent" yaml:"agent"`

	// ArtifactType — тип артефакта, который производит шаг.
	ArtifactType ArtifactType `json:"artifact_type" yaml:"artifact_type"`

	// SkipInDevMode — bypass-предикат: в development mode шаг не
	// вызывает агента, а сразу пишет fallback-артефакт.
	SkipInDevMode bool `json:"skip_in_dev_mode,omitempty" yaml:"skip_in_dev_mode,omitempty"`
}

// PipelineSpec — спецификация пайплайна: имя и упорядоченный список шагов.
type PipelineSpec struct {
	// Name — имя пайплайна.
	Name string `json:"name" yaml:"name"`

	// Steps — шаги в порядке выполнения.
	Steps []StepDef `json:"steps" yaml:"steps"`
}
